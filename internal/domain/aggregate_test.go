package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrich(t *testing.T) {
	t.Run("intensity metrics and yearly rollup", func(t *testing.T) {
		records := []JoinedRecord{
			{BuildingID: "B1", Year: 2022, Month: 1, KWh: fp(500), FloorArea: fp(100)},
			{BuildingID: "B1", Year: 2022, Month: 2, KWh: fp(300), FloorArea: fp(100)},
		}

		out := Enrich(records)

		require.Len(t, out, 2)
		require.NotNil(t, out[0].KWhPerArea)
		assert.InDelta(t, 5.0, *out[0].KWhPerArea, 1e-9)
		require.NotNil(t, out[1].KWhPerArea)
		assert.InDelta(t, 3.0, *out[1].KWhPerArea, 1e-9)

		for _, r := range out {
			require.NotNil(t, r.YearTotalKWh)
			assert.InDelta(t, 800, *r.YearTotalKWh, 1e-9)
		}
	})

	t.Run("explicit yearly record wins over monthly sum", func(t *testing.T) {
		records := []JoinedRecord{
			{BuildingID: "B1", Year: 2022, Month: 1, KWh: fp(500)},
			{BuildingID: "B1", Year: 2022, Month: 2, KWh: fp(300)},
			{BuildingID: "B1", Year: 2022, Month: 0, KWh: fp(900)},
		}

		out := Enrich(records)

		for _, r := range out {
			require.NotNil(t, r.YearTotalKWh)
			assert.InDelta(t, 900, *r.YearTotalKWh, 1e-9, "month %d", r.Month)
		}
	})

	t.Run("no total when no consumption at all", func(t *testing.T) {
		out := Enrich([]JoinedRecord{
			{BuildingID: "B1", Year: 2022, Month: 1, MeanTemp: fp(-3)},
		})

		require.Len(t, out, 1)
		assert.Nil(t, out[0].YearTotalKWh)
		assert.Nil(t, out[0].KWhPerArea)
	})

	t.Run("year-over-year delta needs totals on both sides", func(t *testing.T) {
		records := []JoinedRecord{
			{BuildingID: "B1", Year: 2022, Month: 0, KWh: fp(1000)},
			{BuildingID: "B1", Year: 2023, Month: 0, KWh: fp(940)},
			{BuildingID: "B2", Year: 2023, Month: 0, KWh: fp(500)},
		}

		out := Enrich(records)

		byKey := make(map[PeriodKey]JoinedRecord)
		for _, r := range out {
			byKey[r.Key()] = r
		}

		first := byKey[PeriodKey{BuildingID: "B1", Year: 2022}]
		assert.Nil(t, first.YoYDeltaKWh)

		second := byKey[PeriodKey{BuildingID: "B1", Year: 2023}]
		require.NotNil(t, second.YoYDeltaKWh)
		assert.InDelta(t, -60, *second.YoYDeltaKWh, 1e-9)

		other := byKey[PeriodKey{BuildingID: "B2", Year: 2023}]
		assert.Nil(t, other.YoYDeltaKWh)
	})

	t.Run("missing denominator keeps metric absent", func(t *testing.T) {
		out := Enrich([]JoinedRecord{
			{BuildingID: "B1", Year: 2022, Month: 1, KWh: fp(500)},
		})

		require.Len(t, out, 1)
		assert.Nil(t, out[0].KWhPerArea)
		assert.Nil(t, out[0].KWhPerResident)
	})

	t.Run("zero denominator keeps metric absent", func(t *testing.T) {
		out := Enrich([]JoinedRecord{
			{BuildingID: "B1", Year: 2022, Month: 1, KWh: fp(500), FloorArea: fp(0)},
		})

		require.Len(t, out, 1)
		assert.Nil(t, out[0].KWhPerArea)
	})

	t.Run("input is not mutated", func(t *testing.T) {
		records := []JoinedRecord{
			{BuildingID: "B1", Year: 2022, Month: 1, KWh: fp(500), FloorArea: fp(100)},
		}
		snapshot := []JoinedRecord{
			{BuildingID: "B1", Year: 2022, Month: 1, KWh: fp(500), FloorArea: fp(100)},
		}

		Enrich(records)

		if diff := cmp.Diff(snapshot, records); diff != "" {
			t.Errorf("Enrich mutated its input (-want +got):\n%s", diff)
		}
	})
}
