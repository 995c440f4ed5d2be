// Package valuation computes indicative automated value estimates from a
// property's selected comparable evidence.  The estimate is advisory: it feeds
// the report's valuation analysis section and the contradiction checker, and
// is never a substitute for the valuer's assessed figure.
package valuation

import (
	"time"

	"github.com/appraisehub/valuation-platform/internal/domain/evidence"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// Estimate is the output of one estimator run over a comparable set.
type Estimate struct {
	PropertyAddress common.PropertyAddress `json:"property_address"`

	// Amount is the projected value for the subject property.
	Amount float64 `json:"amount"`

	// RatePerArea is the mean unit rate the projection was derived from.
	RatePerArea float64 `json:"rate_per_area"`

	// ReferenceArea is the area the rate was projected over.
	ReferenceArea float64 `json:"reference_area"`

	// ComparableIDs records which evidence drove the estimate, in
	// selection order.
	ComparableIDs []common.ID `json:"comparable_ids"`

	ComputedAt time.Time `json:"computed_at"`
}

// Estimator produces an Estimate from a comparable set, or nil when the set
// does not meet the minimum.  Implementations must be pure with respect to
// their inputs: identical sets yield identical estimates.
type Estimator interface {
	Estimate(address common.PropertyAddress, set *evidence.ComparableSet, at time.Time) *Estimate
}

// RateProjection is the default Estimator.  Each comparable contributes its
// amount divided by its unit area; the mean of those rates is projected over a
// configured reference area.  The model is deliberately naive — it exists to
// exercise the pipeline, and the reference area stands in for subject
// attributes the platform does not yet capture.
type RateProjection struct {
	// ReferenceArea is the projection area in square metres.
	ReferenceArea float64
}

// NewRateProjection constructs a RateProjection with the given reference
// area; zero or negative falls back to the platform default of 200.
func NewRateProjection(referenceArea float64) *RateProjection {
	if referenceArea <= 0 {
		referenceArea = 200
	}
	return &RateProjection{ReferenceArea: referenceArea}
}

// Estimate implements Estimator.
func (e *RateProjection) Estimate(address common.PropertyAddress, set *evidence.ComparableSet, at time.Time) *Estimate {
	if set == nil || !set.HasMinimum || len(set.Records) == 0 {
		return nil
	}

	var sum float64
	for _, r := range set.Records {
		sum += r.Amount / r.UnitArea()
	}
	rate := sum / float64(len(set.Records))

	return &Estimate{
		PropertyAddress: address,
		Amount:          rate * e.ReferenceArea,
		RatePerArea:     rate,
		ReferenceArea:   e.ReferenceArea,
		ComparableIDs:   set.IDs(),
		ComputedAt:      at,
	}
}
