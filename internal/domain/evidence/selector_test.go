package evidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

func datedSale(t *testing.T, date string, seq int64, status RecordStatus) *Record {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	r := saleRecord(t, "40 King St", 900000, d, status)
	r.Seq = seq
	return r
}

func TestSelectorBelowMinimum(t *testing.T) {
	s := NewSelector()

	records := []*Record{
		datedSale(t, "2024-01-01", 1, StatusSettled),
		datedSale(t, "2024-02-01", 2, StatusSettled),
		datedSale(t, "2024-03-01", 3, StatusPending), // does not qualify
	}

	set := s.Select(records)
	assert.False(t, set.HasMinimum)
	assert.Empty(t, set.Records)
	assert.Equal(t, 2, set.QualifyingCount)
}

func TestSelectorPicksThreeMostRecent(t *testing.T) {
	s := NewSelector()

	// Four settled sales; the oldest must be left out.
	records := []*Record{
		datedSale(t, "2024-01-01", 1, StatusSettled),
		datedSale(t, "2024-02-01", 2, StatusSettled),
		datedSale(t, "2024-03-01", 3, StatusSettled),
		datedSale(t, "2024-04-01", 4, StatusSettled),
	}

	set := s.Select(records)
	require.True(t, set.HasMinimum)
	require.Len(t, set.Records, 3)
	assert.Equal(t, 4, set.QualifyingCount)

	assert.Equal(t, int64(4), set.Records[0].Seq)
	assert.Equal(t, int64(3), set.Records[1].Seq)
	assert.Equal(t, int64(2), set.Records[2].Seq)
}

func TestSelectorIgnoresNonQualifying(t *testing.T) {
	s := NewSelector()

	records := []*Record{
		datedSale(t, "2024-05-01", 1, StatusCancelled),
		datedSale(t, "2024-04-01", 2, StatusSettled),
		datedSale(t, "2024-03-01", 3, StatusSettled),
		datedSale(t, "2024-02-01", 4, StatusSettled),
		datedSale(t, "2024-01-01", 5, StatusPending),
	}

	set := s.Select(records)
	require.True(t, set.HasMinimum)
	require.Len(t, set.Records, 3)
	for _, r := range set.Records {
		assert.True(t, r.Qualifies())
	}
	assert.Equal(t, int64(2), set.Records[0].Seq)
}

func TestSelectorTieBreakByInsertionOrder(t *testing.T) {
	s := NewSelector()

	// Same transaction date everywhere: insertion sequence decides.
	records := []*Record{
		datedSale(t, "2024-03-01", 3, StatusSettled),
		datedSale(t, "2024-03-01", 1, StatusSettled),
		datedSale(t, "2024-03-01", 4, StatusSettled),
		datedSale(t, "2024-03-01", 2, StatusSettled),
	}

	set := s.Select(records)
	require.Len(t, set.Records, 3)
	assert.Equal(t, []common.ID{records[1].ID, records[3].ID, records[0].ID}, set.IDs())
}

func TestSelectorDeterministic(t *testing.T) {
	s := NewSelector()
	records := []*Record{
		datedSale(t, "2024-02-10", 1, StatusSettled),
		datedSale(t, "2024-02-10", 2, StatusSettled),
		datedSale(t, "2024-01-05", 3, StatusSettled),
		datedSale(t, "2024-03-20", 4, StatusSettled),
	}

	first := s.Select(records)
	for i := 0; i < 10; i++ {
		again := s.Select(records)
		assert.Equal(t, first.IDs(), again.IDs())
	}
}

func TestSelectorDoesNotMutateInput(t *testing.T) {
	s := NewSelector()
	records := []*Record{
		datedSale(t, "2024-01-01", 1, StatusSettled),
		datedSale(t, "2024-03-01", 2, StatusSettled),
		datedSale(t, "2024-02-01", 3, StatusSettled),
	}

	set := s.Select(records)
	require.True(t, set.HasMinimum)
	for _, r := range records {
		assert.False(t, r.IsComparable, "selection must not set flags itself")
	}
}
