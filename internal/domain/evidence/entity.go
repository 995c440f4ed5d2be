// Package evidence implements the Evidence bounded context: comparable
// market-transaction records, their validation and lifecycle, and the
// deterministic comparable-selection rules that drive automated valuation.
// All business rules that concern market evidence live here; infrastructure
// concerns (persistence, locking, events) are handled by separate repository
// and adapter layers.
package evidence

import (
	"fmt"
	"time"

	"github.com/appraisehub/valuation-platform/pkg/errors"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Transaction kind and status enums
// ─────────────────────────────────────────────────────────────────────────────

// TransactionKind distinguishes sales evidence from leasing evidence.  The
// qualifying status set differs between the two.
type TransactionKind string

const (
	KindSale  TransactionKind = "sale"
	KindLease TransactionKind = "lease"
)

// RecordStatus is the lifecycle state of one evidence record.
//
// Sales progress pending → settled, or pending → cancelled.
// Leases progress pending → active, or active → terminated.
type RecordStatus string

const (
	// Sale statuses.
	StatusSettled   RecordStatus = "settled"
	StatusCancelled RecordStatus = "cancelled"

	// Lease statuses.
	StatusActive     RecordStatus = "active"
	StatusTerminated RecordStatus = "terminated"

	// StatusPending is shared by both kinds.
	StatusPending RecordStatus = "pending"
)

// validStatuses maps each transaction kind to its admissible statuses.
var validStatuses = map[TransactionKind]map[RecordStatus]bool{
	KindSale: {
		StatusSettled:   true,
		StatusPending:   true,
		StatusCancelled: true,
	},
	KindLease: {
		StatusActive:     true,
		StatusPending:    true,
		StatusTerminated: true,
	},
}

// qualifyingStatus is the status that makes a record usable for comparison,
// keyed by transaction kind: settled sales and active leases qualify.
var qualifyingStatus = map[TransactionKind]RecordStatus{
	KindSale:  StatusSettled,
	KindLease: StatusActive,
}

// ─────────────────────────────────────────────────────────────────────────────
// EvidenceRecord aggregate
// ─────────────────────────────────────────────────────────────────────────────

// Record is one comparable market transaction observed for a property's
// locality.  Consumers must not set IsComparable directly: the flag is derived
// by the Selector and rewritten after every mutation of a property's record
// set.
type Record struct {
	common.BaseEntity

	// PropertyAddress is the subject property this evidence belongs to.
	// It is the partitioning key for all selection and locking.
	PropertyAddress common.PropertyAddress `json:"property_address"`

	Kind            TransactionKind `json:"kind"`
	Amount          float64         `json:"amount"`
	TransactionDate time.Time       `json:"transaction_date"`
	Status          RecordStatus    `json:"status"`
	PropertyType    string          `json:"property_type,omitempty"`

	// Physical attributes.  Zero means unknown; the estimator falls back from
	// building area to land area to a unit divisor.
	BuildingArea float64 `json:"building_area,omitempty"`
	LandArea     float64 `json:"land_area,omitempty"`
	Bedrooms     int     `json:"bedrooms,omitempty"`
	Bathrooms    int     `json:"bathrooms,omitempty"`
	CarSpaces    int     `json:"car_spaces,omitempty"`

	Notes string `json:"notes,omitempty"`

	// IsComparable marks membership in the current comparable set.  Derived,
	// never user-set; exclusive per property.
	IsComparable bool `json:"is_comparable"`

	// Seq is a monotonically increasing insertion sequence assigned by the
	// repository.  It breaks transaction-date ties so selection stays
	// deterministic.
	Seq int64 `json:"seq"`
}

// NewRecord constructs an evidence record with a fresh identity and validates
// it.  The caller-supplied now drives the audit timestamps so the function
// stays deterministic under test.
func NewRecord(address common.PropertyAddress, kind TransactionKind, amount float64,
	date time.Time, status RecordStatus, now time.Time) (*Record, error) {

	r := &Record{
		BaseEntity: common.BaseEntity{
			ID:        common.NewID(),
			CreatedAt: now,
			UpdatedAt: now,
			Version:   1,
		},
		PropertyAddress: address,
		Kind:            kind,
		Amount:          amount,
		TransactionDate: date,
		Status:          status,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate enforces the store-boundary invariants: property address, amount,
// and date are mandatory, and the status must be admissible for the record's
// transaction kind.  Malformed records are rejected before storage, never
// stored-then-flagged.
func (r *Record) Validate() error {
	if r.PropertyAddress == "" {
		return errors.New(errors.ErrCodeEvidenceInvalid, "property_address is required")
	}
	if r.Amount <= 0 {
		return errors.New(errors.ErrCodeEvidenceInvalid, "amount must be positive").
			WithDetail(fmt.Sprintf("got %g", r.Amount))
	}
	if r.TransactionDate.IsZero() {
		return errors.New(errors.ErrCodeEvidenceInvalid, "transaction date is required")
	}
	switch r.Kind {
	case KindSale, KindLease:
	default:
		return errors.New(errors.ErrCodeEvidenceInvalid, "transaction kind must be sale or lease").
			WithDetail(string(r.Kind))
	}
	if !validStatuses[r.Kind][r.Status] {
		return errors.New(errors.ErrCodeEvidenceStatusInvalid,
			fmt.Sprintf("status %q is not valid for a %s record", r.Status, r.Kind))
	}
	return nil
}

// Qualifies reports whether the record's status admits it as a comparable
// candidate: settled for sales, active for leases.
func (r *Record) Qualifies() bool {
	return qualifyingStatus[r.Kind] == r.Status
}

// UnitArea returns the divisor used for rate-per-area computation: building
// area when known, otherwise land area, otherwise 1 so the rate degrades to
// the raw amount rather than dividing by zero.
func (r *Record) UnitArea() float64 {
	if r.BuildingArea > 0 {
		return r.BuildingArea
	}
	if r.LandArea > 0 {
		return r.LandArea
	}
	return 1
}

// ApplyPatch copies the caller-editable fields of patch onto the receiver and
// revalidates.  Identity, audit, Seq, and IsComparable are never patched.
func (r *Record) ApplyPatch(patch *Record, now time.Time) error {
	r.PropertyAddress = patch.PropertyAddress
	r.Kind = patch.Kind
	r.Amount = patch.Amount
	r.TransactionDate = patch.TransactionDate
	r.Status = patch.Status
	r.PropertyType = patch.PropertyType
	r.BuildingArea = patch.BuildingArea
	r.LandArea = patch.LandArea
	r.Bedrooms = patch.Bedrooms
	r.Bathrooms = patch.Bathrooms
	r.CarSpaces = patch.CarSpaces
	r.Notes = patch.Notes
	if err := r.Validate(); err != nil {
		return err
	}
	r.Touch(now)
	return nil
}

// Clone returns a deep copy of the record.  Repositories hand out clones so
// callers can never mutate stored state in place.
func (r *Record) Clone() *Record {
	clone := *r
	return &clone
}
