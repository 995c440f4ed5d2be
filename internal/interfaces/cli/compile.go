package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	appreport "github.com/appraisehub/valuation-platform/internal/application/report"
	"github.com/appraisehub/valuation-platform/internal/domain/contradiction"
	"github.com/appraisehub/valuation-platform/internal/domain/evidence"
	domreport "github.com/appraisehub/valuation-platform/internal/domain/report"
	"github.com/appraisehub/valuation-platform/internal/domain/section"
	"github.com/appraisehub/valuation-platform/internal/domain/valuation"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/signing"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

type compileFlags struct {
	property  string
	evidence  string
	fields    string
	inclusion string
	secret    string
	override  bool
}

// newCompileCmd builds `reportctl compile`, running the entire pipeline
// in-process over local JSON files.
func newCompileCmd() *cobra.Command {
	flags := &compileFlags{}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Run the full pipeline locally and print the compile outcome",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompile(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.property, "property", "", "subject property address (required)")
	cmd.Flags().StringVar(&flags.evidence, "evidence", "", "evidence batch JSON file")
	cmd.Flags().StringVar(&flags.fields, "fields", "", "section fields JSON file")
	cmd.Flags().StringVar(&flags.inclusion, "inclusion", "", "inclusion config JSON file")
	cmd.Flags().StringVar(&flags.secret, "signing-secret", "dev-signing-secret", "local HMAC signing secret")
	cmd.Flags().BoolVar(&flags.override, "override", false, "compile despite critical contradictions")
	cmd.MarkFlagRequired("property")
	return cmd
}

func runCompile(cmd *cobra.Command, flags *compileFlags) error {
	ctx := context.Background()
	now := time.Now().UTC()
	log := logging.NewNopLogger()
	address := common.PropertyAddress(flags.property)

	fields := appreport.NewMemoryFieldStore()
	if flags.fields != "" {
		var payloads map[section.Key]map[string]string
		if err := readJSONFile(flags.fields, &payloads); err != nil {
			return err
		}
		for key, raw := range payloads {
			if err := fields.UpsertFields(ctx, address, key, raw, now); err != nil {
				return err
			}
		}
	}
	if flags.inclusion != "" {
		var config map[section.Key]section.InclusionRule
		if err := readJSONFile(flags.inclusion, &config); err != nil {
			return err
		}
		for key, rule := range config {
			if err := fields.SetInclusion(ctx, address, key, rule); err != nil {
				return err
			}
		}
	}

	evSvc := evidence.NewService(evidence.NewMemoryRepository(),
		evidence.NewSelector(), evidence.NewMutexLocker(), nil, log)
	if flags.evidence != "" {
		records, problems := loadEvidenceFile(flags.evidence, now)
		if len(problems) > 0 {
			for _, p := range problems {
				fmt.Fprintf(cmd.ErrOrStderr(), "invalid: %v\n", p)
			}
			return fmt.Errorf("%d invalid evidence record(s)", len(problems))
		}
		for _, r := range records {
			r.Seq = 0 // the repository reassigns insertion order
			if _, err := evSvc.Submit(ctx, r); err != nil {
				return err
			}
		}
	}

	svc := appreport.NewService(appreport.Deps{
		Evidence:   evSvc,
		Estimator:  valuation.NewRateProjection(200),
		Classifier: section.NewClassifier(),
		Checker:    contradiction.NewChecker(0.10),
		Compiler:   domreport.NewCompiler(signing.NewHMACSigner(flags.secret), log),
		Fields:     fields,
		Logger:     log,
	})

	outcome, err := svc.CompileReport(ctx, address, flags.override)
	if err != nil {
		return err
	}

	out := json.NewEncoder(cmd.OutOrStdout())
	out.SetIndent("", "  ")
	if err := out.Encode(outcome); err != nil {
		return err
	}
	if outcome.Blocked() {
		return fmt.Errorf("compilation blocked")
	}
	return nil
}

func readJSONFile(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
