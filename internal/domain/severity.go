package domain

import (
	"encoding/json"
	"fmt"
)

// Tier is an ordered severity classification of a building's consumption
// intensity, used to color map markers.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
	TierCritical
)

var tierNames = [...]string{"low", "medium", "high", "critical"}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// MarshalJSON serializes the tier as its name.
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Classifier maps a metric value to a Tier against a fixed, ordered boundary
// table. Comparison is inclusive on the lower bound and exclusive on the
// upper; the top tier is unbounded above.
type Classifier struct {
	bounds [3]float64 // lower bounds of Medium, High, Critical
}

// NewClassifier builds a Classifier from the lower bounds of the Medium,
// High, and Critical tiers, which must be strictly increasing.
func NewClassifier(bounds []float64) (*Classifier, error) {
	if len(bounds) != 3 {
		return nil, fmt.Errorf("classifier needs 3 boundaries, got %d", len(bounds))
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			return nil, fmt.Errorf("boundaries must be strictly increasing, got %v", bounds)
		}
	}
	var c Classifier
	copy(c.bounds[:], bounds)
	return &c, nil
}

// Default boundary tables, in kWh. The per-m² values follow the operator's
// map legend; the per-resident values its reporting guidance.
func DefaultPerAreaBounds() []float64     { return []float64{30, 50, 100} }
func DefaultPerResidentBounds() []float64 { return []float64{2000, 4000, 8000} }

// Classify maps a metric to its tier. An absent metric yields an absent
// tier, never a default "low": missing data must not read as good
// performance.
func (c *Classifier) Classify(metric *float64) *Tier {
	if metric == nil {
		return nil
	}
	tier := TierLow
	for i, bound := range c.bounds {
		if *metric >= bound {
			tier = Tier(i + 1)
		}
	}
	return &tier
}
