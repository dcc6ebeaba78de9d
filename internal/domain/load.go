package domain

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// FieldKind selects the normalization applied to a schema field.
type FieldKind int

const (
	KindText FieldKind = iota
	KindNumber
	KindInteger
	KindDate
)

// fieldSpec describes one column of a source schema.
type fieldSpec struct {
	name     string
	kind     FieldKind
	required bool
}

// schema is the fixed column set of one source. The three loaders are the
// same row-walk parameterized by their schema; validation happens once here
// so downstream code never re-checks field presence.
type schema struct {
	source string
	fields []fieldSpec
}

// fieldValue is one normalized cell.
type fieldValue struct {
	text string
	num  float64
	i    int
	date Date
	ok   bool
	code Code
}

// scan normalizes one row against the schema. It returns the per-field
// values, any malformed-field diagnostics, and false when a required field
// is missing or unparseable (the row is rejected).
func (s schema) scan(rowIdx int, row RawRecord) (map[string]fieldValue, []Diagnostic, bool) {
	values := make(map[string]fieldValue, len(s.fields))
	var diags []Diagnostic

	for _, f := range s.fields {
		raw := row.Field(f.name)
		v := normalizeField(f.kind, raw)

		if !v.ok && f.required {
			diags = append(diags, Diagnostic{
				Source: s.source,
				Row:    rowIdx,
				Field:  f.name,
				Reason: ReasonMissingRequiredField,
				Detail: fmt.Sprintf("required field %s: %s", f.name, missingDetail(v.code)),
			})
			return nil, diags, false
		}
		if !v.ok && v.code != CodeEmpty {
			diags = append(diags, Diagnostic{
				Source: s.source,
				Row:    rowIdx,
				Field:  f.name,
				Reason: ReasonMalformedField,
				Detail: fmt.Sprintf("%s %q: %s", f.name, CleanText(raw), v.code),
			})
		}
		values[f.name] = v
	}
	return values, diags, true
}

func normalizeField(kind FieldKind, raw string) fieldValue {
	switch kind {
	case KindNumber:
		n, ok, code := ParseNumber(raw)
		return fieldValue{num: n, ok: ok, code: code}
	case KindInteger:
		n, ok, code := ParseInt(raw)
		return fieldValue{i: n, ok: ok, code: code}
	case KindDate:
		d, ok, code := ParseDate(raw)
		return fieldValue{date: d, ok: ok, code: code}
	default:
		t := CleanText(raw)
		if t == "" {
			return fieldValue{code: CodeEmpty}
		}
		return fieldValue{text: t, ok: true}
	}
}

func missingDetail(code Code) string {
	if code == CodeEmpty {
		return "empty"
	}
	return string(code)
}

func (v fieldValue) numPtr() *float64 {
	if !v.ok {
		return nil
	}
	n := v.num
	return &n
}

// --- buildings ---

var buildingSchema = schema{
	source: "buildings",
	fields: []fieldSpec{
		{name: "project_name", kind: KindText, required: true},
		{name: "city", kind: KindText},
		{name: "project_type", kind: KindText},
		{name: "year_built", kind: KindInteger},
		{name: "lat", kind: KindNumber},
		{name: "lon", kind: KindNumber},
		{name: "total_he", kind: KindNumber},
		{name: "total_bra", kind: KindNumber},
	},
}

// cityGazetteer gives fallback coordinates for buildings whose metadata row
// has no usable lat/lon but names a known city.
var cityGazetteer = map[string]Geo{
	"ÅLESUND":   {Lat: 62.4722, Lon: 6.1495},
	"GJØVIK":    {Lat: 60.7957, Lon: 10.6915},
	"TRONDHEIM": {Lat: 63.4305, Lon: 10.3951},
}

// DefaultProjectType is the project category this service reports on.
const DefaultProjectType = "studentboliger"

// BuildingLoadOptions filters the metadata source. An empty ProjectType
// disables filtering.
type BuildingLoadOptions struct {
	ProjectType string
}

// LoadBuildings parses building metadata rows. Duplicate identifiers keep
// the first occurrence; later ones are dropped with a diagnostic so map
// markers stay consistent across runs. Returns the records, the count of
// rejected rows, and the accumulated diagnostics.
func LoadBuildings(rows []RawRecord, opts BuildingLoadOptions) ([]BuildingRecord, int, []Diagnostic) {
	var (
		records  []BuildingRecord
		diags    []Diagnostic
		rejected int
	)
	seen := make(map[string]bool, len(rows))

	for i, row := range rows {
		values, rowDiags, ok := buildingSchema.scan(i+1, row)
		diags = append(diags, rowDiags...)
		if !ok {
			rejected++
			continue
		}

		if opts.ProjectType != "" {
			pt := values["project_type"]
			if pt.ok && !strings.EqualFold(pt.text, opts.ProjectType) {
				continue
			}
		}

		id := values["project_name"].text
		if seen[id] {
			diags = append(diags, Diagnostic{
				Source: "buildings",
				Row:    i + 1,
				Field:  "project_name",
				Reason: ReasonDuplicateIdentifier,
				Detail: fmt.Sprintf("duplicate identifier %q, keeping first occurrence", id),
			})
			continue
		}
		seen[id] = true

		rec := BuildingRecord{
			ID:          id,
			Name:        id,
			City:        CanonicalCity(values["city"].text),
			ProjectType: strings.ToLower(values["project_type"].text),
		}
		if yb := values["year_built"]; yb.ok {
			y := yb.i
			rec.YearBuilt = &y
		}

		coordDiags := resolveCoordinates(&rec, values["lat"], values["lon"], i+1)
		diags = append(diags, coordDiags...)

		diags = append(diags, resolvePositive(&rec.FloorArea, values["total_bra"], "buildings", "total_bra", i+1)...)
		diags = append(diags, resolvePositive(&rec.Residents, values["total_he"], "buildings", "total_he", i+1)...)

		records = append(records, rec)
	}
	return records, rejected, diags
}

// resolveCoordinates applies the both-or-neither coordinate policy, then the
// city gazetteer fallback. The fallback offset is keyed by a hash of the
// identifier, not the row index, so loader output is order-insensitive.
func resolveCoordinates(rec *BuildingRecord, lat, lon fieldValue, rowIdx int) []Diagnostic {
	var diags []Diagnostic

	latOK := lat.ok && lat.num >= -90 && lat.num <= 90
	lonOK := lon.ok && lon.num >= -180 && lon.num <= 180
	if lat.ok && !latOK {
		diags = append(diags, Diagnostic{
			Source: "buildings", Row: rowIdx, Field: "lat",
			Reason: ReasonMalformedField,
			Detail: fmt.Sprintf("latitude %g out of range", lat.num),
		})
	}
	if lon.ok && !lonOK {
		diags = append(diags, Diagnostic{
			Source: "buildings", Row: rowIdx, Field: "lon",
			Reason: ReasonMalformedField,
			Detail: fmt.Sprintf("longitude %g out of range", lon.num),
		})
	}

	switch {
	case latOK && lonOK:
		rec.Coords = &Geo{Lat: lat.num, Lon: lon.num}
		rec.GeoSource = GeoFromSource
		return diags
	case latOK != lonOK:
		diags = append(diags, Diagnostic{
			Source: "buildings", Row: rowIdx, Field: "lat",
			Reason: ReasonMalformedField,
			Detail: fmt.Sprintf("building %q has half a coordinate pair, dropping both", rec.ID),
		})
	}

	if base, ok := cityGazetteer[rec.City]; ok {
		offset := float64(identifierOffset(rec.ID)) * 0.001
		rec.Coords = &Geo{Lat: base.Lat + offset, Lon: base.Lon + offset}
		rec.GeoSource = GeoFromCity
	}
	return diags
}

// identifierOffset maps an identifier to a stable 0–9 marker offset step.
func identifierOffset(id string) int {
	h := fnv.New32a()
	h.Write([]byte(id)) //nolint:errcheck // fnv never fails
	return int(h.Sum32() % 10)
}

// resolvePositive assigns a numeric field only when present and positive.
func resolvePositive(dst **float64, v fieldValue, source, field string, rowIdx int) []Diagnostic {
	if !v.ok {
		return nil
	}
	if v.num <= 0 {
		return []Diagnostic{{
			Source: source, Row: rowIdx, Field: field,
			Reason: ReasonMalformedField,
			Detail: fmt.Sprintf("%s must be positive, got %g", field, v.num),
		}}
	}
	n := v.num
	*dst = &n
	return nil
}

// --- temperature ---

var temperatureSchema = schema{
	source: "temperature",
	fields: []fieldSpec{
		{name: "project_name", kind: KindText, required: true},
		{name: "city", kind: KindText},
		{name: "time", kind: KindDate, required: true},
		{name: "temperature", kind: KindNumber},
		{name: "hdd_17", kind: KindNumber},
	},
}

// LoadTemperatures parses temperature rows. A sample with a missing value is
// kept for coverage tracking but contributes nothing to period means.
func LoadTemperatures(rows []RawRecord) ([]TemperatureSample, int, []Diagnostic) {
	var (
		samples  []TemperatureSample
		diags    []Diagnostic
		rejected int
	)

	for i, row := range rows {
		values, rowDiags, ok := temperatureSchema.scan(i+1, row)
		diags = append(diags, rowDiags...)
		if !ok {
			rejected++
			continue
		}

		samples = append(samples, TemperatureSample{
			BuildingID: values["project_name"].text,
			City:       CanonicalCity(values["city"].text),
			Date:       values["time"].date,
			Value:      values["temperature"].numPtr(),
			HDD:        values["hdd_17"].numPtr(),
		})
	}
	return samples, rejected, diags
}

// --- electricity ---

var electricitySchema = schema{
	source: "electricity",
	fields: []fieldSpec{
		{name: "project_name", kind: KindText, required: true},
		{name: "city", kind: KindText},
		{name: "year", kind: KindInteger, required: true},
	},
}

// monthColumns maps the wide-format column names to month numbers. Header
// canonicalization already collapsed the "Apr__KwH" / "may__KwH" quirks.
var monthColumns = []struct {
	name  string
	month int
}{
	{"jan_kwh", 1}, {"feb_kwh", 2}, {"mar_kwh", 3}, {"apr_kwh", 4},
	{"may_kwh", 5}, {"jun_kwh", 6}, {"jul_kwh", 7}, {"aug_kwh", 8},
	{"sep_kwh", 9}, {"oct_kwh", 10}, {"nov_kwh", 11}, {"dec_kwh", 12},
}

// LoadConsumption parses electricity rows. Wide-format rows explode into one
// record per non-empty month column plus a yearly record from
// year_total_kwh; long-format rows (with a month column) yield one record.
// Monthly records are never pre-summed into yearly ones here; rollups happen
// during enrichment.
func LoadConsumption(rows []RawRecord) ([]ConsumptionRecord, int, []Diagnostic) {
	var (
		records  []ConsumptionRecord
		diags    []Diagnostic
		rejected int
	)

	for i, row := range rows {
		values, rowDiags, ok := electricitySchema.scan(i+1, row)
		diags = append(diags, rowDiags...)
		if !ok {
			rejected++
			continue
		}

		base := ConsumptionRecord{
			BuildingID: values["project_name"].text,
			City:       CanonicalCity(values["city"].text),
			Year:       values["year"].i,
		}

		if row.Has("month") {
			rec, recDiags, ok := longFormatRecord(base, row, i+1)
			diags = append(diags, recDiags...)
			if !ok {
				rejected++
				continue
			}
			records = append(records, rec)
			continue
		}

		monthly, wideDiags := wideFormatRecords(base, row, i+1)
		diags = append(diags, wideDiags...)
		records = append(records, monthly...)
	}
	return records, rejected, diags
}

// longFormatRecord parses a year;month;kwh style row. An empty month cell
// means a yearly total; an unparseable one rejects the row since the period
// key would be wrong.
func longFormatRecord(base ConsumptionRecord, row RawRecord, rowIdx int) (ConsumptionRecord, []Diagnostic, bool) {
	var diags []Diagnostic

	m, ok, code := ParseInt(row.Field("month"))
	switch {
	case ok && (m < 1 || m > 12):
		diags = append(diags, Diagnostic{
			Source: "electricity", Row: rowIdx, Field: "month",
			Reason: ReasonMissingRequiredField,
			Detail: fmt.Sprintf("month %d out of range", m),
		})
		return ConsumptionRecord{}, diags, false
	case !ok && code != CodeEmpty:
		diags = append(diags, Diagnostic{
			Source: "electricity", Row: rowIdx, Field: "month",
			Reason: ReasonMissingRequiredField,
			Detail: fmt.Sprintf("month %q: %s", CleanText(row.Field("month")), code),
		})
		return ConsumptionRecord{}, diags, false
	case ok:
		base.Month = m
	}

	kwh, ok, code := ParseNumber(row.Field("kwh"))
	if ok {
		if kwh < 0 {
			diags = append(diags, Diagnostic{
				Source: "electricity", Row: rowIdx, Field: "kwh",
				Reason: ReasonMalformedField,
				Detail: fmt.Sprintf("negative consumption %g treated as missing", kwh),
			})
		} else {
			base.KWh = &kwh
		}
	} else if code != CodeEmpty {
		diags = append(diags, Diagnostic{
			Source: "electricity", Row: rowIdx, Field: "kwh",
			Reason: ReasonMalformedField,
			Detail: fmt.Sprintf("kwh %q: %s", CleanText(row.Field("kwh")), code),
		})
	}
	return base, diags, true
}

// wideFormatRecords explodes a Jan_KwH…Dec_KwH row. Empty month cells yield
// no record; malformed ones yield a record with a missing value so period
// coverage stays visible.
func wideFormatRecords(base ConsumptionRecord, row RawRecord, rowIdx int) ([]ConsumptionRecord, []Diagnostic) {
	var (
		records []ConsumptionRecord
		diags   []Diagnostic
	)

	emit := func(month int, field string) {
		raw := row.Field(field)
		v, ok, code := ParseNumber(raw)
		if !ok && code == CodeEmpty {
			return
		}

		rec := base
		rec.Month = month
		switch {
		case ok && v < 0:
			diags = append(diags, Diagnostic{
				Source: "electricity", Row: rowIdx, Field: field,
				Reason: ReasonMalformedField,
				Detail: fmt.Sprintf("negative consumption %g treated as missing", v),
			})
		case ok:
			rec.KWh = &v
		default:
			diags = append(diags, Diagnostic{
				Source: "electricity", Row: rowIdx, Field: field,
				Reason: ReasonMalformedField,
				Detail: fmt.Sprintf("%s %q: %s", field, CleanText(raw), code),
			})
		}
		records = append(records, rec)
	}

	for _, col := range monthColumns {
		emit(col.month, col.name)
	}
	emit(0, "year_total_kwh")

	return records, diags
}
