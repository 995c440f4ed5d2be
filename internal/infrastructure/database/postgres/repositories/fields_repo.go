package repositories

import (
	"context"
	"time"

	"github.com/appraisehub/valuation-platform/internal/domain/section"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/database/postgres"
	"github.com/appraisehub/valuation-platform/pkg/errors"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// FieldRepository persists section payloads and inclusion configuration and
// serves them back as the pipeline's field-data snapshot.
type FieldRepository struct {
	db *postgres.DB
}

// NewFieldRepository constructs a FieldRepository.
func NewFieldRepository(db *postgres.DB) *FieldRepository {
	return &FieldRepository{db: db}
}

// Snapshot implements report.FieldDataSource.  Raw values are converted into
// presence-tagged fields on the way out, so sentinel strings never travel
// past this boundary.
func (p *FieldRepository) Snapshot(ctx context.Context, address common.PropertyAddress) (map[section.Key]section.Payload, section.InclusionConfig, error) {
	const fieldQuery = `
		SELECT section_key, field_name, field_value
		FROM section_fields
		WHERE property_address = $1`

	rows, err := p.db.QueryContext(ctx, fieldQuery, address)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load section fields")
	}
	defer rows.Close()

	payloads := map[section.Key]section.Payload{}
	for rows.Next() {
		var key section.Key
		var name, value string
		if err := rows.Scan(&key, &name, &value); err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan section field")
		}
		if payloads[key] == nil {
			payloads[key] = section.Payload{}
		}
		payloads[key][name] = section.NewFieldValue(value)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate section fields")
	}

	const inclusionQuery = `
		SELECT section_key, included, required
		FROM section_inclusion
		WHERE property_address = $1`

	incRows, err := p.db.QueryContext(ctx, inclusionQuery, address)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load inclusion config")
	}
	defer incRows.Close()

	config := section.InclusionConfig{}
	for incRows.Next() {
		var key section.Key
		var rule section.InclusionRule
		if err := incRows.Scan(&key, &rule.Included, &rule.Required); err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan inclusion rule")
		}
		config[key] = rule
	}
	if err := incRows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate inclusion config")
	}

	return payloads, config, nil
}

// UpsertFields writes raw field values for one section.
func (p *FieldRepository) UpsertFields(ctx context.Context, address common.PropertyAddress, key section.Key, fields map[string]string, now time.Time) error {
	const query = `
		INSERT INTO section_fields (property_address, section_key, field_name, field_value, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (property_address, section_key, field_name)
		DO UPDATE SET field_value = EXCLUDED.field_value, updated_at = EXCLUDED.updated_at`

	for name, value := range fields {
		if _, err := p.db.ExecContext(ctx, query, address, key, name, value, now); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert section field")
		}
	}
	return nil
}

// SetInclusion writes one section's inclusion rule.
func (p *FieldRepository) SetInclusion(ctx context.Context, address common.PropertyAddress, key section.Key, rule section.InclusionRule) error {
	const query = `
		INSERT INTO section_inclusion (property_address, section_key, included, required)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (property_address, section_key)
		DO UPDATE SET included = EXCLUDED.included, required = EXCLUDED.required`

	if _, err := p.db.ExecContext(ctx, query, address, key, rule.Included, rule.Required); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert inclusion rule")
	}
	return nil
}
