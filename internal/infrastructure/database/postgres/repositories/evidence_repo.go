// Package repositories contains the PostgreSQL implementations of the
// domain's persistence ports.
package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/appraisehub/valuation-platform/internal/domain/evidence"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/database/postgres"
	"github.com/appraisehub/valuation-platform/pkg/errors"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// EvidenceRepository is the PostgreSQL evidence.Repository.
type EvidenceRepository struct {
	db *postgres.DB
}

// NewEvidenceRepository constructs an EvidenceRepository.
func NewEvidenceRepository(db *postgres.DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

const evidenceColumns = `id, property_address, kind, amount, transaction_date, status,
	property_type, building_area, land_area, bedrooms, bathrooms, car_spaces,
	notes, is_comparable, seq, created_at, updated_at, version`

func scanRecord(row interface{ Scan(...any) error }) (*evidence.Record, error) {
	r := &evidence.Record{}
	err := row.Scan(
		&r.ID, &r.PropertyAddress, &r.Kind, &r.Amount, &r.TransactionDate, &r.Status,
		&r.PropertyType, &r.BuildingArea, &r.LandArea, &r.Bedrooms, &r.Bathrooms, &r.CarSpaces,
		&r.Notes, &r.IsComparable, &r.Seq, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Create implements evidence.Repository.  The insertion sequence is assigned
// by the database and written back onto the record.
func (p *EvidenceRepository) Create(ctx context.Context, r *evidence.Record) error {
	const query = `
		INSERT INTO evidence_records (
			id, property_address, kind, amount, transaction_date, status,
			property_type, building_area, land_area, bedrooms, bathrooms, car_spaces,
			notes, is_comparable, created_at, updated_at, version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING seq`

	err := p.db.QueryRowContext(ctx, query,
		r.ID, r.PropertyAddress, r.Kind, r.Amount, r.TransactionDate, r.Status,
		r.PropertyType, r.BuildingArea, r.LandArea, r.Bedrooms, r.Bathrooms, r.CarSpaces,
		r.Notes, r.IsComparable, r.CreatedAt, r.UpdatedAt, r.Version,
	).Scan(&r.Seq)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return errors.Conflict("evidence record already exists").WithDetail(r.ID.String())
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert evidence record")
	}
	return nil
}

// GetByID implements evidence.Repository.
func (p *EvidenceRepository) GetByID(ctx context.Context, id common.ID) (*evidence.Record, error) {
	const query = `SELECT ` + evidenceColumns + ` FROM evidence_records WHERE id = $1`

	r, err := scanRecord(p.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeEvidenceNotFound, "evidence record not found").
			WithDetail(id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load evidence record")
	}
	return r, nil
}

// Update implements evidence.Repository.  Seq and the insertion audit fields
// are never rewritten.
func (p *EvidenceRepository) Update(ctx context.Context, r *evidence.Record) error {
	const query = `
		UPDATE evidence_records SET
			kind = $2, amount = $3, transaction_date = $4, status = $5,
			property_type = $6, building_area = $7, land_area = $8,
			bedrooms = $9, bathrooms = $10, car_spaces = $11, notes = $12,
			updated_at = $13, version = $14
		WHERE id = $1`

	res, err := p.db.ExecContext(ctx, query,
		r.ID, r.Kind, r.Amount, r.TransactionDate, r.Status,
		r.PropertyType, r.BuildingArea, r.LandArea,
		r.Bedrooms, r.Bathrooms, r.CarSpaces, r.Notes,
		r.UpdatedAt, r.Version,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update evidence record")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read update result")
	}
	if affected == 0 {
		return errors.New(errors.ErrCodeEvidenceNotFound, "evidence record not found").
			WithDetail(r.ID.String())
	}
	return nil
}

// Delete implements evidence.Repository.
func (p *EvidenceRepository) Delete(ctx context.Context, id common.ID) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM evidence_records WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete evidence record")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read delete result")
	}
	if affected == 0 {
		return errors.New(errors.ErrCodeEvidenceNotFound, "evidence record not found").
			WithDetail(id.String())
	}
	return nil
}

// ListByProperty implements evidence.Repository.
func (p *EvidenceRepository) ListByProperty(ctx context.Context, address common.PropertyAddress) ([]*evidence.Record, error) {
	const query = `SELECT ` + evidenceColumns + `
		FROM evidence_records
		WHERE property_address = $1
		ORDER BY transaction_date DESC, seq ASC`

	rows, err := p.db.QueryContext(ctx, query, address)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list evidence records")
	}
	defer rows.Close()

	var out []*evidence.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan evidence record")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate evidence records")
	}
	return out, nil
}

// SetComparableFlags implements evidence.Repository.  The clear and set run
// in one transaction so no reader observes inconsistent flags.
func (p *EvidenceRepository) SetComparableFlags(ctx context.Context, address common.PropertyAddress, ids []common.ID) error {
	return p.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE evidence_records SET is_comparable = FALSE WHERE property_address = $1`,
			address); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to clear comparable flags")
		}
		if len(ids) == 0 {
			return nil
		}
		raw := make([]string, len(ids))
		for i, id := range ids {
			raw[i] = id.String()
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE evidence_records SET is_comparable = TRUE
			 WHERE property_address = $1 AND id = ANY($2)`,
			address, pq.Array(raw)); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to set comparable flags")
		}
		return nil
	})
}
