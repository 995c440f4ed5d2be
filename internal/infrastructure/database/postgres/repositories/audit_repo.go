package repositories

import (
	"context"

	appreport "github.com/appraisehub/valuation-platform/internal/application/report"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/database/postgres"
	"github.com/appraisehub/valuation-platform/pkg/errors"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// AuditRepository is the PostgreSQL report.AuditRepository.
type AuditRepository struct {
	db *postgres.DB
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db *postgres.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record implements report.AuditRepository.
func (p *AuditRepository) Record(ctx context.Context, entry *appreport.AuditEntry) error {
	const query = `
		INSERT INTO audit_entries (id, property_address, action, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := p.db.ExecContext(ctx, query,
		entry.ID, entry.PropertyAddress, entry.Action, entry.Detail, entry.OccurredAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert audit entry")
	}
	return nil
}

// ListByProperty implements report.AuditRepository, newest first.
func (p *AuditRepository) ListByProperty(ctx context.Context, address common.PropertyAddress, limit int) ([]*appreport.AuditEntry, error) {
	const query = `
		SELECT id, property_address, action, detail, occurred_at
		FROM audit_entries
		WHERE property_address = $1
		ORDER BY occurred_at DESC
		LIMIT $2`

	rows, err := p.db.QueryContext(ctx, query, address, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list audit entries")
	}
	defer rows.Close()

	var out []*appreport.AuditEntry
	for rows.Next() {
		e := &appreport.AuditEntry{}
		if err := rows.Scan(&e.ID, &e.PropertyAddress, &e.Action, &e.Detail, &e.OccurredAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan audit entry")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate audit entries")
	}
	return out, nil
}
