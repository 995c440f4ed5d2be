package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/appraisehub/valuation-platform/internal/domain/evidence"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// evidenceFile is the on-disk form of one evidence record.
type evidenceFile struct {
	PropertyAddress string  `json:"property_address"`
	Kind            string  `json:"kind"`
	Amount          float64 `json:"amount"`
	TransactionDate string  `json:"transaction_date"`
	Status          string  `json:"status"`
	BuildingArea    float64 `json:"building_area,omitempty"`
	LandArea        float64 `json:"land_area,omitempty"`
	Notes           string  `json:"notes,omitempty"`
}

func (e *evidenceFile) toRecord(now time.Time) (*evidence.Record, error) {
	date, err := time.Parse("2006-01-02", e.TransactionDate)
	if err != nil {
		return nil, fmt.Errorf("transaction_date %q must be YYYY-MM-DD", e.TransactionDate)
	}
	r := &evidence.Record{
		PropertyAddress: common.PropertyAddress(e.PropertyAddress),
		Kind:            evidence.TransactionKind(e.Kind),
		Amount:          e.Amount,
		TransactionDate: date,
		Status:          evidence.RecordStatus(e.Status),
		BuildingArea:    e.BuildingArea,
		LandArea:        e.LandArea,
		Notes:           e.Notes,
	}
	r.ID = common.NewID()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1
	return r, r.Validate()
}

func loadEvidenceFile(path string, now time.Time) ([]*evidence.Record, []error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{err}
	}
	var entries []evidenceFile
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, []error{fmt.Errorf("%s: %w", path, err)}
	}

	var records []*evidence.Record
	var problems []error
	for i := range entries {
		r, err := entries[i].toRecord(now)
		if err != nil {
			problems = append(problems, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		r.Seq = int64(i + 1)
		records = append(records, r)
	}
	return records, problems
}

// newEvidenceCmd builds `reportctl evidence`.
func newEvidenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Evidence batch utilities",
	}
	cmd.AddCommand(newEvidenceLintCmd())
	return cmd
}

func newEvidenceLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <file>",
		Short: "Validate an evidence batch and preview the comparable selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, problems := loadEvidenceFile(args[0], time.Now().UTC())
			for _, p := range problems {
				fmt.Fprintf(cmd.ErrOrStderr(), "invalid: %v\n", p)
			}

			set := evidence.NewSelector().Select(records)
			fmt.Fprintf(cmd.OutOrStdout(), "records: %d valid, %d invalid\n",
				len(records), len(problems))
			fmt.Fprintf(cmd.OutOrStdout(), "qualifying: %d (minimum met: %v)\n",
				set.QualifyingCount, set.HasMinimum)
			for i, r := range set.Records {
				fmt.Fprintf(cmd.OutOrStdout(), "  comparable %d: %s %s $%.0f (%s)\n",
					i+1, r.TransactionDate.Format("2006-01-02"), r.Kind, r.Amount, r.Status)
			}

			if len(problems) > 0 {
				return fmt.Errorf("%d invalid record(s)", len(problems))
			}
			return nil
		},
	}
}
