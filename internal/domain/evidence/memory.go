package evidence

import (
	"context"
	"sort"
	"sync"

	"github.com/appraisehub/valuation-platform/pkg/errors"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// MemoryRepository is an in-memory Repository used by unit tests and the
// CLI's offline mode.  It is safe for concurrent use.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[common.ID]*Record
	nextSeq int64
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[common.ID]*Record)}
}

func (m *MemoryRepository) Create(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.ID]; ok {
		return errors.Conflict("evidence record already exists").WithDetail(r.ID.String())
	}
	m.nextSeq++
	r.Seq = m.nextSeq
	m.records[r.ID] = r.Clone()
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id common.ID) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeEvidenceNotFound, "evidence record not found").
			WithDetail(id.String())
	}
	return r.Clone(), nil
}

func (m *MemoryRepository) Update(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.records[r.ID]
	if !ok {
		return errors.New(errors.ErrCodeEvidenceNotFound, "evidence record not found").
			WithDetail(r.ID.String())
	}
	clone := r.Clone()
	clone.Seq = stored.Seq // sequence is immutable after insertion
	m.records[r.ID] = clone
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id common.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return errors.New(errors.ErrCodeEvidenceNotFound, "evidence record not found").
			WithDetail(id.String())
	}
	delete(m.records, id)
	return nil
}

func (m *MemoryRepository) ListByProperty(_ context.Context, address common.PropertyAddress) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Record
	for _, r := range m.records {
		if r.PropertyAddress == address {
			out = append(out, r.Clone())
		}
	}
	sortByRecency(out)
	return out, nil
}

func (m *MemoryRepository) SetComparableFlags(_ context.Context, address common.PropertyAddress, ids []common.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	selected := make(map[common.ID]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}
	for _, r := range m.records {
		if r.PropertyAddress == address {
			r.IsComparable = selected[r.ID]
		}
	}
	return nil
}

// sortByRecency orders records by transaction date descending, ties broken by
// ascending insertion sequence for determinism.
func sortByRecency(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].TransactionDate.Equal(records[j].TransactionDate) {
			return records[i].Seq < records[j].Seq
		}
		return records[i].TransactionDate.After(records[j].TransactionDate)
	})
}
