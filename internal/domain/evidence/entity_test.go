package evidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appraisehub/valuation-platform/pkg/errors"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func saleRecord(t *testing.T, address string, amount float64, date time.Time, status RecordStatus) *Record {
	t.Helper()
	r, err := NewRecord(common.PropertyAddress(address), KindSale, amount, date, status, testNow)
	require.NoError(t, err)
	return r
}

func TestNewRecord(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	r, err := NewRecord("12 Harbour St", KindSale, 850000, date, StatusSettled, testNow)
	require.NoError(t, err)

	assert.False(t, r.ID.IsZero())
	assert.Equal(t, testNow, r.CreatedAt)
	assert.Equal(t, 1, r.Version)
	assert.False(t, r.IsComparable)
}

func TestRecordValidate(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		mutate   func(*Record)
		wantCode errors.ErrorCode
	}{
		{
			name:     "missing address",
			mutate:   func(r *Record) { r.PropertyAddress = "" },
			wantCode: errors.ErrCodeEvidenceInvalid,
		},
		{
			name:     "zero amount",
			mutate:   func(r *Record) { r.Amount = 0 },
			wantCode: errors.ErrCodeEvidenceInvalid,
		},
		{
			name:     "negative amount",
			mutate:   func(r *Record) { r.Amount = -1 },
			wantCode: errors.ErrCodeEvidenceInvalid,
		},
		{
			name:     "missing date",
			mutate:   func(r *Record) { r.TransactionDate = time.Time{} },
			wantCode: errors.ErrCodeEvidenceInvalid,
		},
		{
			name:     "unknown kind",
			mutate:   func(r *Record) { r.Kind = "auction" },
			wantCode: errors.ErrCodeEvidenceInvalid,
		},
		{
			name:     "lease status on a sale",
			mutate:   func(r *Record) { r.Status = StatusActive },
			wantCode: errors.ErrCodeEvidenceStatusInvalid,
		},
		{
			name:     "sale status on a lease",
			mutate:   func(r *Record) { r.Kind = KindLease; r.Status = StatusSettled },
			wantCode: errors.ErrCodeEvidenceStatusInvalid,
		},
		{
			name:     "arbitrary status",
			mutate:   func(r *Record) { r.Status = "under_offer" },
			wantCode: errors.ErrCodeEvidenceStatusInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := saleRecord(t, "12 Harbour St", 850000, date, StatusSettled)
			tt.mutate(r)
			err := r.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.GetCode(err))
		})
	}
}

func TestRecordQualifies(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		kind   TransactionKind
		status RecordStatus
		want   bool
	}{
		{KindSale, StatusSettled, true},
		{KindSale, StatusPending, false},
		{KindSale, StatusCancelled, false},
		{KindLease, StatusActive, true},
		{KindLease, StatusPending, false},
		{KindLease, StatusTerminated, false},
	}
	for _, tt := range tests {
		r := &Record{
			PropertyAddress: "x",
			Kind:            tt.kind,
			Amount:          1000,
			TransactionDate: date,
			Status:          tt.status,
		}
		assert.Equal(t, tt.want, r.Qualifies(), "%s/%s", tt.kind, tt.status)
	}
}

func TestRecordUnitArea(t *testing.T) {
	r := &Record{BuildingArea: 180, LandArea: 600}
	assert.Equal(t, 180.0, r.UnitArea())

	r.BuildingArea = 0
	assert.Equal(t, 600.0, r.UnitArea())

	r.LandArea = 0
	assert.Equal(t, 1.0, r.UnitArea())
}

func TestRecordApplyPatch(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	r := saleRecord(t, "12 Harbour St", 850000, date, StatusPending)
	r.Seq = 7
	r.IsComparable = true

	later := testNow.Add(time.Hour)
	patch := r.Clone()
	patch.Status = StatusSettled
	patch.Amount = 860000

	require.NoError(t, r.ApplyPatch(patch, later))
	assert.Equal(t, StatusSettled, r.Status)
	assert.Equal(t, 860000.0, r.Amount)
	assert.Equal(t, later, r.UpdatedAt)
	assert.Equal(t, 2, r.Version)
	assert.Equal(t, int64(7), r.Seq)

	// Invalid patch leaves the audit fields untouched.
	bad := r.Clone()
	bad.Amount = -5
	err := r.ApplyPatch(bad, later.Add(time.Hour))
	require.Error(t, err)
	assert.Equal(t, 2, r.Version)
}

func TestRecordClone(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	r := saleRecord(t, "12 Harbour St", 850000, date, StatusSettled)
	clone := r.Clone()
	clone.Amount = 1

	assert.Equal(t, 850000.0, r.Amount)
}
