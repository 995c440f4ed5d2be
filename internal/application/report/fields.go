package report

import (
	"context"
	"sync"
	"time"

	"github.com/appraisehub/valuation-platform/internal/domain/section"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// MemoryFieldStore is an in-memory FieldDataSource used by unit tests and the
// CLI's offline mode.  It is safe for concurrent use.
type MemoryFieldStore struct {
	mu        sync.RWMutex
	payloads  map[common.PropertyAddress]map[section.Key]section.Payload
	inclusion map[common.PropertyAddress]section.InclusionConfig
}

// NewMemoryFieldStore constructs an empty MemoryFieldStore.
func NewMemoryFieldStore() *MemoryFieldStore {
	return &MemoryFieldStore{
		payloads:  make(map[common.PropertyAddress]map[section.Key]section.Payload),
		inclusion: make(map[common.PropertyAddress]section.InclusionConfig),
	}
}

// Snapshot implements FieldDataSource.  The returned maps are copies; callers
// may fold derived data into them freely.
func (m *MemoryFieldStore) Snapshot(_ context.Context, address common.PropertyAddress) (map[section.Key]section.Payload, section.InclusionConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payloads := map[section.Key]section.Payload{}
	for key, p := range m.payloads[address] {
		clone := make(section.Payload, len(p))
		for name, v := range p {
			clone[name] = v
		}
		payloads[key] = clone
	}
	config := section.InclusionConfig{}
	for key, rule := range m.inclusion[address] {
		config[key] = rule
	}
	return payloads, config, nil
}

// UpsertFields writes raw field values for one section.
func (m *MemoryFieldStore) UpsertFields(_ context.Context, address common.PropertyAddress, key section.Key, fields map[string]string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.payloads[address] == nil {
		m.payloads[address] = map[section.Key]section.Payload{}
	}
	payload := m.payloads[address][key]
	if payload == nil {
		payload = section.Payload{}
		m.payloads[address][key] = payload
	}
	for name, value := range fields {
		payload[name] = section.NewFieldValue(value)
	}
	return nil
}

// SetInclusion writes one section's inclusion rule.
func (m *MemoryFieldStore) SetInclusion(_ context.Context, address common.PropertyAddress, key section.Key, rule section.InclusionRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inclusion[address] == nil {
		m.inclusion[address] = section.InclusionConfig{}
	}
	m.inclusion[address][key] = rule
	return nil
}
