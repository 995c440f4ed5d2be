package evidence

import (
	"context"

	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// Repository defines the persistence contract for evidence records.
//
// Implementations must guarantee read-your-writes consistency within a single
// property's scope: a ListByProperty immediately after Create/Update/Delete
// for the same address observes the mutation.
type Repository interface {
	// Create stores a new record and assigns its insertion sequence.
	Create(ctx context.Context, r *Record) error

	// GetByID returns the record with the given id, or an
	// ErrCodeEvidenceNotFound AppError.
	GetByID(ctx context.Context, id common.ID) (*Record, error)

	// Update replaces the stored record having r.ID.
	Update(ctx context.Context, r *Record) error

	// Delete removes the record with the given id.
	Delete(ctx context.Context, id common.ID) error

	// ListByProperty returns every record for the address ordered by
	// transaction date descending, ties broken by ascending insertion
	// sequence.
	ListByProperty(ctx context.Context, address common.PropertyAddress) ([]*Record, error)

	// SetComparableFlags clears is_comparable on every record of the property
	// and sets it on exactly the given ids, atomically: no caller may observe
	// an intermediate state where the flags are inconsistent.
	SetComparableFlags(ctx context.Context, address common.PropertyAddress, ids []common.ID) error
}
