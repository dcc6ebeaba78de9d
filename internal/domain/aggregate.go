package domain

import "slices"

// yearKey groups joined records by building and year for rollups.
type yearKey struct {
	buildingID string
	year       int
}

// Enrich computes the derived metrics over a joined record set and returns a
// new slice; the input records are never mutated.
//
// Per-period intensity metrics divide the period's consumption by floor area
// or resident count, only when the denominator is present and positive. The
// yearly rollup prefers an explicit yearly record's own value; otherwise it
// sums the year's non-missing monthly values. The two are never mixed, which
// would double count. Year-over-year deltas need a total on both sides.
func Enrich(records []JoinedRecord) []JoinedRecord {
	out := slices.Clone(records)

	totals := yearlyTotals(out)

	for i := range out {
		r := &out[i]
		r.KWhPerArea = safeDivide(r.KWh, r.FloorArea)
		r.KWhPerResident = safeDivide(r.KWh, r.Residents)

		key := yearKey{buildingID: r.BuildingID, year: r.Year}
		if total, ok := totals[key]; ok {
			t := total
			r.YearTotalKWh = &t

			prev, ok := totals[yearKey{buildingID: r.BuildingID, year: r.Year - 1}]
			if ok {
				d := total - prev
				r.YoYDeltaKWh = &d
			}
		}
	}
	return out
}

// yearlyTotals computes the rollup for every (building, year) group present
// in the record set. An explicit yearly record wins over summed months.
func yearlyTotals(records []JoinedRecord) map[yearKey]float64 {
	monthly := make(map[yearKey]float64)
	monthlySeen := make(map[yearKey]bool)
	yearly := make(map[yearKey]float64)

	for _, r := range records {
		if r.KWh == nil {
			continue
		}
		key := yearKey{buildingID: r.BuildingID, year: r.Year}
		if r.Month == 0 {
			yearly[key] = *r.KWh
		} else {
			monthly[key] += *r.KWh
			monthlySeen[key] = true
		}
	}

	totals := make(map[yearKey]float64, len(monthly)+len(yearly))
	for key, sum := range monthly {
		if monthlySeen[key] {
			totals[key] = sum
		}
	}
	for key, v := range yearly {
		totals[key] = v
	}
	return totals
}

// safeDivide returns num/den when both are present and den is positive,
// otherwise nil. Missing data stays absent; it never becomes zero.
func safeDivide(num, den *float64) *float64 {
	if num == nil || den == nil || *den <= 0 {
		return nil
	}
	v := *num / *den
	return &v
}
