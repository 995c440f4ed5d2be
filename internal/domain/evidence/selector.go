package evidence

import (
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// ComparableSet — derived selection result
// ─────────────────────────────────────────────────────────────────────────────

// ComparableSet is the derived, most-recent-first bounded subset of a
// property's qualifying evidence records.  It is never stored independently;
// it is recomputed synchronously whenever the underlying record set changes.
type ComparableSet struct {
	// Records holds up to the selector's maximum, ordered most-recent-first.
	Records []*Record `json:"records"`

	// HasMinimum is true iff at least the selector's minimum count of
	// qualifying records exists.  When false no estimate may be computed and
	// no is_comparable flag is set.
	HasMinimum bool `json:"has_minimum"`

	// QualifyingCount is the total number of qualifying records observed,
	// before the bound is applied.
	QualifyingCount int `json:"qualifying_count"`
}

// IDs returns the identifiers of the selected records in order.
func (s *ComparableSet) IDs() []common.ID {
	ids := make([]common.ID, 0, len(s.Records))
	for _, r := range s.Records {
		ids = append(ids, r.ID)
	}
	return ids
}

// ─────────────────────────────────────────────────────────────────────────────
// Selector
// ─────────────────────────────────────────────────────────────────────────────

// Selector picks the bounded comparable subset from a property's evidence.
// Select is a pure function: identical input always yields an identical set
// in identical order.
type Selector struct {
	// MinQualifying is the qualifying-record count required before any
	// selection happens.
	MinQualifying int

	// MaxComparables bounds the selected subset.
	MaxComparables int
}

// NewSelector constructs a Selector with the platform defaults (minimum 3,
// maximum 3).
func NewSelector() *Selector {
	return &Selector{MinQualifying: 3, MaxComparables: 3}
}

// Select filters records to the qualifying status set, orders them by
// transaction date descending (insertion order breaks ties), and takes the
// most-recent bounded subset.  If fewer than MinQualifying records qualify,
// the returned set is empty and HasMinimum is false.
//
// Select never mutates its input; flag rewriting is the Service's job.
func (s *Selector) Select(records []*Record) *ComparableSet {
	qualifying := make([]*Record, 0, len(records))
	for _, r := range records {
		if r.Qualifies() {
			qualifying = append(qualifying, r)
		}
	}

	set := &ComparableSet{QualifyingCount: len(qualifying)}
	if len(qualifying) < s.MinQualifying {
		return set
	}
	set.HasMinimum = true

	sortByRecency(qualifying)
	n := s.MaxComparables
	if n > len(qualifying) {
		n = len(qualifying)
	}
	set.Records = make([]*Record, n)
	copy(set.Records, qualifying[:n])
	return set
}
