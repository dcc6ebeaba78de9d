package domain

import (
	"strings"
	"time"
)

// RawRecord is one parsed row of a source table: header name → raw cell text.
// Produced by an ingest adapter and consumed exactly once by a loader.
type RawRecord map[string]string

// Field looks up a cell by canonical field name. Header matching is
// case-insensitive, ignores surrounding whitespace, and collapses runs of
// underscores, so "Apr__KwH" matches "apr_kwh".
func (r RawRecord) Field(name string) string {
	if v, ok := r[name]; ok {
		return v
	}
	want := canonicalFieldName(name)
	for k, v := range r {
		if canonicalFieldName(k) == want {
			return v
		}
	}
	return ""
}

// Has reports whether the row carries the named column at all, empty or not.
func (r RawRecord) Has(name string) bool {
	if _, ok := r[name]; ok {
		return true
	}
	want := canonicalFieldName(name)
	for k := range r {
		if canonicalFieldName(k) == want {
			return true
		}
	}
	return false
}

func canonicalFieldName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	return name
}

// Geo is a WGS-84 latitude/longitude pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geo provenance values for BuildingRecord.GeoSource.
const (
	GeoFromSource = "source" // coordinates present in the metadata row
	GeoFromCity   = "city"   // gazetteer fallback from the city name
)

// BuildingRecord is one building's static metadata. Coordinates, floor area
// and resident count are optional; nil means absent, never zero.
type BuildingRecord struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	City        string   `json:"city,omitempty"`
	ProjectType string   `json:"project_type,omitempty"`
	Coords      *Geo     `json:"coords,omitempty"`
	GeoSource   string   `json:"geo_source,omitempty"`
	FloorArea   *float64 `json:"floor_area_m2,omitempty"`
	Residents   *float64 `json:"residents,omitempty"`
	YearBuilt   *int     `json:"year_built,omitempty"`
}

// Date is a calendar date of varying precision: Month and Day may be zero
// when the source only gives a year or a year-month.
type Date struct {
	Year  int
	Month int
	Day   int
}

// TemperatureSample is one temperature reading for a building and period.
// The value may be missing; such samples are kept for coverage tracking but
// excluded from period means.
type TemperatureSample struct {
	BuildingID string
	City       string
	Date       Date
	Value      *float64 // °C
	HDD        *float64 // heating degree days, 17 °C base
}

// ConsumptionRecord is one electricity reading for a building and period.
// Month 0 denotes a yearly total.
type ConsumptionRecord struct {
	BuildingID string
	City       string
	Year       int
	Month      int
	KWh        *float64
}

// PeriodKey identifies one reporting interval for one building.
// Month 0 denotes the yearly period.
type PeriodKey struct {
	BuildingID string
	Year       int
	Month      int
}

// JoinedRecord is the reconciled per-building, per-period record. Metric
// fields are filled in by Enrich; a nil metric means it could not be
// computed from the available data.
type JoinedRecord struct {
	BuildingID string   `json:"building_id"`
	Name       string   `json:"name,omitempty"`
	City       string   `json:"city,omitempty"`
	Coords     *Geo     `json:"coords,omitempty"`
	FloorArea  *float64 `json:"floor_area_m2,omitempty"`
	Residents  *float64 `json:"residents,omitempty"`

	Year  int `json:"year"`
	Month int `json:"month,omitempty"`

	MeanTemp *float64 `json:"mean_temp,omitempty"`
	MeanHDD  *float64 `json:"mean_hdd,omitempty"`
	KWh      *float64 `json:"kwh,omitempty"`

	KWhPerArea     *float64 `json:"kwh_per_m2,omitempty"`
	KWhPerResident *float64 `json:"kwh_per_resident,omitempty"`
	YearTotalKWh   *float64 `json:"year_total_kwh,omitempty"`
	YoYDeltaKWh    *float64 `json:"yoy_delta_kwh,omitempty"`

	// Orphan marks records with sensor data but no matching metadata row.
	Orphan bool `json:"orphan,omitempty"`
}

// Key returns the record's period key.
func (r JoinedRecord) Key() PeriodKey {
	return PeriodKey{BuildingID: r.BuildingID, Year: r.Year, Month: r.Month}
}

// Dataset is the reconciled output of one build: the joined records, the
// full building listing (metadata-only buildings included), and the
// diagnostics accumulated along the way.
type Dataset struct {
	Records     []JoinedRecord   `json:"records"`
	Buildings   []BuildingRecord `json:"buildings"`
	Diagnostics []Diagnostic     `json:"diagnostics,omitempty"`
	Fingerprint string           `json:"fingerprint"`
	BuiltAt     time.Time        `json:"built_at"`
}

// NewDataset assembles a Dataset and stamps the build time from the package
// clock.
func NewDataset(records []JoinedRecord, buildings []BuildingRecord, diags []Diagnostic, fingerprint string) *Dataset {
	return &Dataset{
		Records:     records,
		Buildings:   buildings,
		Diagnostics: diags,
		Fingerprint: fingerprint,
		BuiltAt:     clock.Now(),
	}
}
