package domain

import (
	"fmt"
	"sort"
)

// periodBucket accumulates sensor data for one (building, period) key while
// the temperature and consumption sequences stream past.
type periodBucket struct {
	tempSum float64
	tempN   int
	hddSum  float64
	hddN    int
	kwh     *float64
	city    string
}

func (b *periodBucket) noteCity(city string) {
	if b.city == "" && city != "" {
		b.city = city
	}
}

// Join reconciles the three loaded sources into one record per
// (building, year, month) key observed in the sensor data. Buildings present
// only in metadata produce no joined record; sensor data without metadata is
// kept with partial fields and flagged. The output is sorted by
// (building, year, month), so it is identical regardless of loader order.
func Join(buildings []BuildingRecord, temps []TemperatureSample, cons []ConsumptionRecord) ([]JoinedRecord, []Diagnostic) {
	byID := make(map[string]BuildingRecord, len(buildings))
	for _, b := range buildings {
		byID[b.ID] = b
	}

	buckets := make(map[PeriodKey]*periodBucket)
	bucket := func(key PeriodKey) *periodBucket {
		b, ok := buckets[key]
		if !ok {
			b = &periodBucket{}
			buckets[key] = b
		}
		return b
	}

	for _, t := range temps {
		key := PeriodKey{BuildingID: t.BuildingID, Year: t.Date.Year, Month: t.Date.Month}
		b := bucket(key)
		b.noteCity(t.City)
		if t.Value != nil {
			b.tempSum += *t.Value
			b.tempN++
		}
		if t.HDD != nil {
			b.hddSum += *t.HDD
			b.hddN++
		}
	}

	for _, c := range cons {
		key := PeriodKey{BuildingID: c.BuildingID, Year: c.Year, Month: c.Month}
		b := bucket(key)
		b.noteCity(c.City)
		if c.KWh != nil {
			// Multiple readings for one period are sub-meters; sum them.
			if b.kwh == nil {
				v := *c.KWh
				b.kwh = &v
			} else {
				*b.kwh += *c.KWh
			}
		}
	}

	keys := make([]PeriodKey, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.BuildingID != b.BuildingID {
			return a.BuildingID < b.BuildingID
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})

	records := make([]JoinedRecord, 0, len(keys))
	orphaned := make(map[string]bool)
	var diags []Diagnostic

	for _, key := range keys {
		b := buckets[key]
		rec := JoinedRecord{
			BuildingID: key.BuildingID,
			Year:       key.Year,
			Month:      key.Month,
			KWh:        b.kwh,
		}
		if b.tempN > 0 {
			mean := b.tempSum / float64(b.tempN)
			rec.MeanTemp = &mean
		}
		if b.hddN > 0 {
			mean := b.hddSum / float64(b.hddN)
			rec.MeanHDD = &mean
		}

		if meta, ok := byID[key.BuildingID]; ok {
			rec.Name = meta.Name
			rec.City = meta.City
			rec.Coords = meta.Coords
			rec.FloorArea = meta.FloorArea
			rec.Residents = meta.Residents
		} else {
			rec.Orphan = true
			rec.City = b.city
			if !orphaned[key.BuildingID] {
				orphaned[key.BuildingID] = true
				detail := fmt.Sprintf("no metadata for building %q", key.BuildingID)
				if b.city == "" {
					detail += "; city not inferable, excluded from city-filtered views"
				}
				diags = append(diags, Diagnostic{
					Source: "join",
					Field:  "project_name",
					Reason: ReasonUnjoinableRecord,
					Detail: detail,
				})
			}
		}
		records = append(records, rec)
	}
	return records, diags
}
