package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildingRow(overrides map[string]string) RawRecord {
	row := RawRecord{
		"project_name": "Moholt 50",
		"city":         "TRONDHEIM",
		"project_type": "studentboliger",
		"year_built":   "2016",
		"lat":          "63,4095",
		"lon":          "10,4340",
		"total_HE":     "632",
		"Total_BRA":    "18500,5",
	}
	for k, v := range overrides {
		row[k] = v
	}
	return row
}

func TestLoadBuildings(t *testing.T) {
	opts := BuildingLoadOptions{ProjectType: DefaultProjectType}

	t.Run("complete row", func(t *testing.T) {
		records, rejected, diags := LoadBuildings([]RawRecord{buildingRow(nil)}, opts)

		require.Len(t, records, 1)
		assert.Zero(t, rejected)
		assert.Empty(t, diags)

		b := records[0]
		assert.Equal(t, "Moholt 50", b.ID)
		assert.Equal(t, "TRONDHEIM", b.City)
		require.NotNil(t, b.Coords)
		assert.InDelta(t, 63.4095, b.Coords.Lat, 1e-9)
		assert.InDelta(t, 10.4340, b.Coords.Lon, 1e-9)
		assert.Equal(t, GeoFromSource, b.GeoSource)
		require.NotNil(t, b.FloorArea)
		assert.InDelta(t, 18500.5, *b.FloorArea, 1e-9)
		require.NotNil(t, b.Residents)
		assert.InDelta(t, 632, *b.Residents, 1e-9)
		require.NotNil(t, b.YearBuilt)
		assert.Equal(t, 2016, *b.YearBuilt)
	})

	t.Run("missing identifier rejects row", func(t *testing.T) {
		records, rejected, diags := LoadBuildings([]RawRecord{buildingRow(map[string]string{"project_name": ""})}, opts)

		assert.Empty(t, records)
		assert.Equal(t, 1, rejected)
		require.Len(t, diags, 1)
		assert.Equal(t, ReasonMissingRequiredField, diags[0].Reason)
	})

	t.Run("project type filter drops other categories", func(t *testing.T) {
		rows := []RawRecord{
			buildingRow(nil),
			buildingRow(map[string]string{"project_name": "Kontorbygg", "project_type": "naeringsbygg"}),
		}
		records, rejected, _ := LoadBuildings(rows, opts)

		require.Len(t, records, 1)
		assert.Zero(t, rejected)
		assert.Equal(t, "Moholt 50", records[0].ID)
	})

	t.Run("no filter keeps all categories", func(t *testing.T) {
		rows := []RawRecord{
			buildingRow(nil),
			buildingRow(map[string]string{"project_name": "Kontorbygg", "project_type": "naeringsbygg"}),
		}
		records, _, _ := LoadBuildings(rows, BuildingLoadOptions{})
		assert.Len(t, records, 2)
	})

	t.Run("duplicate identifier keeps first occurrence", func(t *testing.T) {
		rows := []RawRecord{
			buildingRow(map[string]string{"total_HE": "100"}),
			buildingRow(map[string]string{"total_HE": "999"}),
		}
		records, _, diags := LoadBuildings(rows, opts)

		require.Len(t, records, 1)
		require.NotNil(t, records[0].Residents)
		assert.InDelta(t, 100, *records[0].Residents, 1e-9)

		counts := CountByReason(diags)
		assert.Equal(t, 1, counts[ReasonDuplicateIdentifier])
	})

	t.Run("half a coordinate pair drops both", func(t *testing.T) {
		records, _, diags := LoadBuildings([]RawRecord{buildingRow(map[string]string{
			"project_name": "Kringsja 12",
			"city":         "OSLO",
			"lon":          "",
		})}, opts)

		require.Len(t, records, 1)
		assert.Nil(t, records[0].Coords)
		assert.Empty(t, records[0].GeoSource)
		assert.Equal(t, 1, CountByReason(diags)[ReasonMalformedField])
	})

	t.Run("gazetteer fallback for known city", func(t *testing.T) {
		records, _, _ := LoadBuildings([]RawRecord{buildingRow(map[string]string{
			"lat": "",
			"lon": "",
		})}, opts)

		require.Len(t, records, 1)
		b := records[0]
		require.NotNil(t, b.Coords)
		assert.Equal(t, GeoFromCity, b.GeoSource)
		// Offset keeps the marker near the city center.
		assert.InDelta(t, 63.4305, b.Coords.Lat, 0.01)
	})

	t.Run("gazetteer fallback is order-insensitive", func(t *testing.T) {
		a := buildingRow(map[string]string{"project_name": "A-Huset", "lat": "", "lon": ""})
		b := buildingRow(map[string]string{"project_name": "B-Huset", "lat": "", "lon": ""})

		first, _, _ := LoadBuildings([]RawRecord{a, b}, opts)
		second, _, _ := LoadBuildings([]RawRecord{b, a}, opts)

		require.Len(t, first, 2)
		require.Len(t, second, 2)
		assert.Equal(t, *first[0].Coords, *second[1].Coords)
		assert.Equal(t, *first[1].Coords, *second[0].Coords)
	})

	t.Run("coordinates out of range fall back", func(t *testing.T) {
		records, _, diags := LoadBuildings([]RawRecord{buildingRow(map[string]string{
			"lat": "163,4",
			"lon": "10,4",
		})}, opts)

		require.Len(t, records, 1)
		assert.Equal(t, GeoFromCity, records[0].GeoSource)
		assert.NotZero(t, CountByReason(diags)[ReasonMalformedField])
	})

	t.Run("non-positive area stays absent", func(t *testing.T) {
		records, _, diags := LoadBuildings([]RawRecord{buildingRow(map[string]string{"Total_BRA": "0"})}, opts)

		require.Len(t, records, 1)
		assert.Nil(t, records[0].FloorArea)
		assert.NotZero(t, CountByReason(diags)[ReasonMalformedField])
	})

	t.Run("city alias canonicalized", func(t *testing.T) {
		records, _, _ := LoadBuildings([]RawRecord{buildingRow(map[string]string{"city": "JAKOBSLI"})}, opts)

		require.Len(t, records, 1)
		assert.Equal(t, "TRONDHEIM", records[0].City)
	})
}

func TestLoadTemperatures(t *testing.T) {
	t.Run("month-name time format", func(t *testing.T) {
		samples, rejected, diags := LoadTemperatures([]RawRecord{{
			"project_name": "Moholt 50",
			"City":         "Trondheim",
			"Time":         "aug.20",
			"temperature":  "15,3",
			"HDD_17":       "53",
		}})

		require.Len(t, samples, 1)
		assert.Zero(t, rejected)
		assert.Empty(t, diags)

		s := samples[0]
		assert.Equal(t, "Moholt 50", s.BuildingID)
		assert.Equal(t, "TRONDHEIM", s.City)
		assert.Equal(t, Date{Year: 2020, Month: 8}, s.Date)
		require.NotNil(t, s.Value)
		assert.InDelta(t, 15.3, *s.Value, 1e-9)
		require.NotNil(t, s.HDD)
		assert.InDelta(t, 53, *s.HDD, 1e-9)
	})

	t.Run("missing value kept as absent", func(t *testing.T) {
		samples, rejected, _ := LoadTemperatures([]RawRecord{{
			"project_name": "Moholt 50",
			"Time":         "2022-01",
			"temperature":  "-",
		}})

		require.Len(t, samples, 1)
		assert.Zero(t, rejected)
		assert.Nil(t, samples[0].Value)
		assert.Nil(t, samples[0].HDD)
	})

	t.Run("unparseable time rejects row", func(t *testing.T) {
		samples, rejected, diags := LoadTemperatures([]RawRecord{{
			"project_name": "Moholt 50",
			"Time":         "sometime",
			"temperature":  "4,2",
		}})

		assert.Empty(t, samples)
		assert.Equal(t, 1, rejected)
		assert.Equal(t, 1, CountByReason(diags)[ReasonMissingRequiredField])
	})
}

func TestLoadConsumption(t *testing.T) {
	t.Run("wide format explodes month columns", func(t *testing.T) {
		records, rejected, diags := LoadConsumption([]RawRecord{{
			"project_name":   "Moholt 50",
			"year":           "2022",
			"Jan_KwH":        "500",
			"Feb_KwH":        "300",
			"Apr__KwH":       "410",
			"may__KwH":       "120,5",
			"Year_total_KwH": "1330,5",
		}})

		assert.Zero(t, rejected)
		assert.Empty(t, diags)
		require.Len(t, records, 5)

		byMonth := make(map[int]*float64)
		for _, r := range records {
			byMonth[r.Month] = r.KWh
		}
		require.NotNil(t, byMonth[1])
		assert.InDelta(t, 500, *byMonth[1], 1e-9)
		require.NotNil(t, byMonth[4])
		assert.InDelta(t, 410, *byMonth[4], 1e-9)
		require.NotNil(t, byMonth[5])
		assert.InDelta(t, 120.5, *byMonth[5], 1e-9)
		require.NotNil(t, byMonth[0])
		assert.InDelta(t, 1330.5, *byMonth[0], 1e-9)
		assert.NotContains(t, byMonth, 3)
	})

	t.Run("malformed wide cell keeps period with missing value", func(t *testing.T) {
		records, _, diags := LoadConsumption([]RawRecord{{
			"project_name": "Moholt 50",
			"year":         "2022",
			"Jan_KwH":      "oops",
		}})

		require.Len(t, records, 1)
		assert.Equal(t, 1, records[0].Month)
		assert.Nil(t, records[0].KWh)
		assert.Equal(t, 1, CountByReason(diags)[ReasonMalformedField])
	})

	t.Run("long format monthly row", func(t *testing.T) {
		records, rejected, _ := LoadConsumption([]RawRecord{{
			"project_name": "Moholt 50",
			"year":         "2022",
			"month":        "3",
			"kwh":          "840,25",
		}})

		assert.Zero(t, rejected)
		require.Len(t, records, 1)
		assert.Equal(t, 3, records[0].Month)
		require.NotNil(t, records[0].KWh)
		assert.InDelta(t, 840.25, *records[0].KWh, 1e-9)
	})

	t.Run("long format empty month means yearly", func(t *testing.T) {
		records, _, _ := LoadConsumption([]RawRecord{{
			"project_name": "Moholt 50",
			"year":         "2022",
			"month":        "",
			"kwh":          "9000",
		}})

		require.Len(t, records, 1)
		assert.Zero(t, records[0].Month)
	})

	t.Run("long format month out of range rejects row", func(t *testing.T) {
		records, rejected, diags := LoadConsumption([]RawRecord{{
			"project_name": "Moholt 50",
			"year":         "2022",
			"month":        "13",
			"kwh":          "100",
		}})

		assert.Empty(t, records)
		assert.Equal(t, 1, rejected)
		assert.Equal(t, 1, CountByReason(diags)[ReasonMissingRequiredField])
	})

	t.Run("negative consumption treated as missing", func(t *testing.T) {
		records, _, diags := LoadConsumption([]RawRecord{{
			"project_name": "Moholt 50",
			"year":         "2022",
			"month":        "1",
			"kwh":          "-50",
		}})

		require.Len(t, records, 1)
		assert.Nil(t, records[0].KWh)
		assert.Equal(t, 1, CountByReason(diags)[ReasonMalformedField])
	})

	t.Run("missing year rejects row", func(t *testing.T) {
		records, rejected, _ := LoadConsumption([]RawRecord{{
			"project_name": "Moholt 50",
			"Jan_KwH":      "500",
		}})

		assert.Empty(t, records)
		assert.Equal(t, 1, rejected)
	})
}
