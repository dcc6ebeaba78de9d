package domain

import (
	"sort"
	"strconv"
)

// Filter narrows dataset views. Zero values mean "no filtering" on that
// dimension. City comparison uses canonical names; records whose city could
// not be inferred never match a city filter.
type Filter struct {
	City       string
	Year       int
	BuildingID string
}

func (f Filter) matches(r JoinedRecord) bool {
	if f.City != "" && r.City != CanonicalCity(f.City) {
		return false
	}
	if f.Year != 0 && r.Year != f.Year {
		return false
	}
	if f.BuildingID != "" && r.BuildingID != f.BuildingID {
		return false
	}
	return true
}

func (f Filter) matchesBuilding(b BuildingRecord) bool {
	if f.City != "" && b.City != CanonicalCity(f.City) {
		return false
	}
	if f.BuildingID != "" && b.ID != f.BuildingID {
		return false
	}
	return true
}

// Select returns the joined records matching the filter, in dataset order.
func (d *Dataset) Select(f Filter) []JoinedRecord {
	var out []JoinedRecord
	for _, r := range d.Records {
		if f.matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Cities lists the distinct canonical city names across records and
// buildings, sorted, for filter widgets.
func (d *Dataset) Cities() []string {
	seen := make(map[string]bool)
	for _, r := range d.Records {
		if r.City != "" {
			seen[r.City] = true
		}
	}
	for _, b := range d.Buildings {
		if b.City != "" {
			seen[b.City] = true
		}
	}
	cities := make([]string, 0, len(seen))
	for c := range seen {
		cities = append(cities, c)
	}
	sort.Strings(cities)
	return cities
}

// Years lists the distinct years present in the joined records, sorted.
func (d *Dataset) Years() []int {
	seen := make(map[int]bool)
	for _, r := range d.Records {
		seen[r.Year] = true
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Summary is the KPI header row: how many buildings have data in view, their
// total consumption, and the mean intensity metrics. Means are nil when the
// respective denominator is unknown for every building in view.
type Summary struct {
	Buildings      int      `json:"buildings"`
	TotalKWh       float64  `json:"total_kwh"`
	KWhPerResident *float64 `json:"kwh_per_resident,omitempty"`
	KWhPerArea     *float64 `json:"kwh_per_m2,omitempty"`
}

// Summary aggregates the filtered records into the KPI row. Consumption is
// the sum of per-building yearly totals (summed across years when no year
// filter is set); intensity means divide that by the covered buildings'
// summed residents and floor area.
func (d *Dataset) Summary(f Filter) Summary {
	totals := d.buildingTotals(f)

	var s Summary
	var residents, area float64
	byID := d.buildingsByID()

	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		s.Buildings++
		s.TotalKWh += totals[id]
		if b, ok := byID[id]; ok {
			if b.Residents != nil {
				residents += *b.Residents
			}
			if b.FloorArea != nil {
				area += *b.FloorArea
			}
		}
	}

	total := s.TotalKWh
	s.KWhPerResident = safeDivide(&total, positiveOrNil(residents))
	s.KWhPerArea = safeDivide(&total, positiveOrNil(area))
	return s
}

func positiveOrNil(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func (d *Dataset) buildingsByID() map[string]BuildingRecord {
	byID := make(map[string]BuildingRecord, len(d.Buildings))
	for _, b := range d.Buildings {
		byID[b.ID] = b
	}
	return byID
}

// buildingTotals sums yearly rollups per building across the filtered
// records. Buildings with no computable total are absent from the map.
func (d *Dataset) buildingTotals(f Filter) map[string]float64 {
	type seenKey struct {
		id   string
		year int
	}
	counted := make(map[seenKey]bool)
	totals := make(map[string]float64)

	for _, r := range d.Records {
		if !f.matches(r) || r.YearTotalKWh == nil {
			continue
		}
		key := seenKey{id: r.BuildingID, year: r.Year}
		if counted[key] {
			continue
		}
		counted[key] = true
		totals[r.BuildingID] += *r.YearTotalKWh
	}
	return totals
}

// MonthPoint is one time-series datapoint for the monthly consumption chart.
type MonthPoint struct {
	Year     int     `json:"year"`
	Month    int     `json:"month"`
	TotalKWh float64 `json:"total_kwh"`
}

// MonthlySeries sums monthly consumption across the filtered records,
// ordered by (year, month). Yearly-only records do not appear; they have no
// month to plot.
func (d *Dataset) MonthlySeries(f Filter) []MonthPoint {
	type monthKey struct {
		year  int
		month int
	}
	sums := make(map[monthKey]float64)
	for _, r := range d.Records {
		if !f.matches(r) || r.Month == 0 || r.KWh == nil {
			continue
		}
		sums[monthKey{year: r.Year, month: r.Month}] += *r.KWh
	}

	points := make([]MonthPoint, 0, len(sums))
	for key, total := range sums {
		points = append(points, MonthPoint{Year: key.year, Month: key.month, TotalKWh: total})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Year != points[j].Year {
			return points[i].Year < points[j].Year
		}
		return points[i].Month < points[j].Month
	})
	return points
}

// ConsumerRank is one row of the top-consumers chart or the quartile tables.
type ConsumerRank struct {
	BuildingID string  `json:"building_id"`
	Name       string  `json:"name,omitempty"`
	City       string  `json:"city,omitempty"`
	TotalKWh   float64 `json:"total_kwh"`
}

// TopConsumers ranks buildings by their summed yearly totals within the
// filter, descending, capped at n. Ties break on identifier so the ranking
// is stable.
func (d *Dataset) TopConsumers(f Filter, n int) []ConsumerRank {
	ranks := d.rankedConsumers(f)
	if n > 0 && len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks
}

func (d *Dataset) rankedConsumers(f Filter) []ConsumerRank {
	totals := d.buildingTotals(f)
	byID := d.buildingsByID()

	ranks := make([]ConsumerRank, 0, len(totals))
	for id, total := range totals {
		rank := ConsumerRank{BuildingID: id, TotalKWh: total}
		if b, ok := byID[id]; ok {
			rank.Name = b.Name
			rank.City = b.City
		}
		ranks = append(ranks, rank)
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].TotalKWh != ranks[j].TotalKWh {
			return ranks[i].TotalKWh > ranks[j].TotalKWh
		}
		return ranks[i].BuildingID < ranks[j].BuildingID
	})
	return ranks
}

// Comparison holds the top and bottom consumption quartiles. The bottom
// quartile excludes buildings with zero recorded consumption, which would
// otherwise swamp it.
type Comparison struct {
	High []ConsumerRank `json:"high"`
	Low  []ConsumerRank `json:"low"`
}

// Quartiles splits the ranked consumers into top and bottom 25% (at least
// one building each when any data exists).
func (d *Dataset) Quartiles(f Filter) Comparison {
	ranks := d.rankedConsumers(f)
	if len(ranks) == 0 {
		return Comparison{}
	}

	quarter := len(ranks) / 4
	if quarter < 1 {
		quarter = 1
	}

	var cmp Comparison
	cmp.High = ranks[:min(quarter, len(ranks))]

	nonZero := make([]ConsumerRank, 0, len(ranks))
	for _, r := range ranks {
		if r.TotalKWh > 0 {
			nonZero = append(nonZero, r)
		}
	}
	if len(nonZero) == 0 {
		return cmp
	}
	lowQuarter := len(nonZero) / 4
	if lowQuarter < 1 {
		lowQuarter = 1
	}
	cmp.Low = nonZero[len(nonZero)-lowQuarter:]
	return cmp
}

// CorrelationPoint pairs a period's mean temperature with its consumption,
// for the temperature-analysis scatter plots.
type CorrelationPoint struct {
	BuildingID string   `json:"building_id"`
	City       string   `json:"city,omitempty"`
	Year       int      `json:"year"`
	Month      int      `json:"month"`
	MeanTemp   float64  `json:"mean_temp"`
	MeanHDD    *float64 `json:"mean_hdd,omitempty"`
	KWh        float64  `json:"kwh"`
}

// Correlation returns the monthly records where both a mean temperature and
// a consumption value exist, in dataset order.
func (d *Dataset) Correlation(f Filter) []CorrelationPoint {
	var points []CorrelationPoint
	for _, r := range d.Records {
		if !f.matches(r) || r.Month == 0 || r.MeanTemp == nil || r.KWh == nil {
			continue
		}
		points = append(points, CorrelationPoint{
			BuildingID: r.BuildingID,
			City:       r.City,
			Year:       r.Year,
			Month:      r.Month,
			MeanTemp:   *r.MeanTemp,
			MeanHDD:    r.MeanHDD,
			KWh:        *r.KWh,
		})
	}
	return points
}

// MetricKind selects which intensity metric drives map coloring.
type MetricKind string

const (
	MetricPerArea     MetricKind = "per_area"
	MetricPerResident MetricKind = "per_resident"
)

// Marker is one map marker: a building, its metric value, and the severity
// tier. A nil tier renders neutral (no consumption data), never green.
type Marker struct {
	Building BuildingRecord `json:"building"`
	Metric   *float64       `json:"metric,omitempty"`
	Tier     *Tier          `json:"tier,omitempty"`
}

// MapMarkers emits one marker per filtered building that has coordinates.
// The metric divides the building's yearly total (per the filter) by floor
// area or resident count; buildings without sensor data still get a marker,
// with no metric and no tier.
func (d *Dataset) MapMarkers(f Filter, kind MetricKind, c *Classifier) []Marker {
	totals := d.buildingTotals(f)

	var markers []Marker
	for _, b := range d.Buildings {
		if b.Coords == nil || !f.matchesBuilding(b) {
			continue
		}

		var metric *float64
		if total, ok := totals[b.ID]; ok {
			den := b.FloorArea
			if kind == MetricPerResident {
				den = b.Residents
			}
			metric = safeDivide(&total, den)
		}

		markers = append(markers, Marker{
			Building: b,
			Metric:   metric,
			Tier:     c.Classify(metric),
		})
	}
	return markers
}

// exportHeader matches the source column vocabulary so exported files load
// back in with the same schemas.
var exportHeader = []string{
	"project_name", "city", "year", "month",
	"mean_temp", "hdd_17", "kwh", "kwh_per_m2", "kwh_per_resident",
	"year_total_kwh", "yoy_delta_kwh",
}

// ExportRows renders the filtered records as rows for a delimited-text
// download, header first. Absent values export as empty cells, not zeros.
func (d *Dataset) ExportRows(f Filter) [][]string {
	rows := [][]string{exportHeader}
	for _, r := range d.Select(f) {
		month := ""
		if r.Month != 0 {
			month = strconv.Itoa(r.Month)
		}
		rows = append(rows, []string{
			r.BuildingID,
			r.City,
			strconv.Itoa(r.Year),
			month,
			formatFloat(r.MeanTemp),
			formatFloat(r.MeanHDD),
			formatFloat(r.KWh),
			formatFloat(r.KWhPerArea),
			formatFloat(r.KWhPerResident),
			formatFloat(r.YearTotalKWh),
			formatFloat(r.YoYDeltaKWh),
		})
	}
	return rows
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
