// Package report wires the valuation pipeline end to end: evidence intake,
// comparable selection, estimation, section classification, contradiction
// checking, and compilation.  It owns the collaborator ports (field data,
// artifact storage, events, audit) so the domain packages stay free of I/O.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/appraisehub/valuation-platform/internal/domain/contradiction"
	domevidence "github.com/appraisehub/valuation-platform/internal/domain/evidence"
	domreport "github.com/appraisehub/valuation-platform/internal/domain/report"
	"github.com/appraisehub/valuation-platform/internal/domain/section"
	"github.com/appraisehub/valuation-platform/internal/domain/valuation"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/pkg/errors"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Collaborator ports
// ─────────────────────────────────────────────────────────────────────────────

// FieldDataSource supplies the report-editing system's current section
// payloads and inclusion configuration.  The snapshot is immutable for the
// duration of one pipeline invocation.
type FieldDataSource interface {
	Snapshot(ctx context.Context, address common.PropertyAddress) (map[section.Key]section.Payload, section.InclusionConfig, error)
}

// ArtifactStore persists compiled reports.  Implementations must be
// idempotent per (address, document hash) so a re-compiled identical report
// overwrites rather than duplicates.
type ArtifactStore interface {
	PutReport(ctx context.Context, r *domreport.CompiledReport) (string, error)
}

// EventPublisher announces completed compilations downstream.
type EventPublisher interface {
	PublishReportCompiled(ctx context.Context, r *domreport.CompiledReport) error
}

// AuditEntry is one recorded pipeline action.
type AuditEntry struct {
	ID              common.ID              `json:"id"`
	PropertyAddress common.PropertyAddress `json:"property_address"`
	Action          string                 `json:"action"`
	Detail          string                 `json:"detail,omitempty"`
	OccurredAt      time.Time              `json:"occurred_at"`
}

// AuditRepository persists the pipeline's audit trail.  Recording failures
// are logged and swallowed: the trail is best-effort, the pipeline result is
// not.
type AuditRepository interface {
	Record(ctx context.Context, entry *AuditEntry) error
	ListByProperty(ctx context.Context, address common.PropertyAddress, limit int) ([]*AuditEntry, error)
}

// Audit actions.
const (
	AuditCompileComplete = "compile_complete"
	AuditCompileBlocked  = "compile_blocked"
	AuditCompileOverride = "compile_override"
)

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// Service is the pipeline façade the HTTP and CLI layers call.
type Service struct {
	evidence   *domevidence.Service
	estimator  valuation.Estimator
	classifier *section.Classifier
	checker    *contradiction.Checker
	compiler   *domreport.Compiler
	coord      *domreport.Coordinator

	fields    FieldDataSource
	artifacts ArtifactStore // optional
	events    EventPublisher
	audit     AuditRepository

	complianceFlags map[string]bool
	log             logging.Logger
	now             func() time.Time
}

// Deps bundles the Service's collaborators.
type Deps struct {
	Evidence   *domevidence.Service
	Estimator  valuation.Estimator
	Classifier *section.Classifier
	Checker    *contradiction.Checker
	Compiler   *domreport.Compiler
	Fields     FieldDataSource
	Artifacts  ArtifactStore
	Events     EventPublisher
	Audit      AuditRepository

	ComplianceFlags map[string]bool
	Logger          logging.Logger
}

// NewService constructs the pipeline façade.  Artifacts, Events, and Audit
// may be nil; the pipeline then runs without persistence of outputs beyond
// the returned values.
func NewService(d Deps) *Service {
	return &Service{
		evidence:        d.Evidence,
		estimator:       d.Estimator,
		classifier:      d.Classifier,
		checker:         d.Checker,
		compiler:        d.Compiler,
		coord:           domreport.NewCoordinator(),
		fields:          d.Fields,
		artifacts:       d.Artifacts,
		events:          d.Events,
		audit:           d.Audit,
		complianceFlags: d.ComplianceFlags,
		log:             d.Logger.Named("pipeline"),
		now:             time.Now,
	}
}

// WithClock replaces the service's time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// Evidence façade
// ─────────────────────────────────────────────────────────────────────────────

// SubmitEvidence stores a new evidence record and recomputes the property's
// comparable selection.
func (s *Service) SubmitEvidence(ctx context.Context, r *domevidence.Record) (*domevidence.Record, error) {
	return s.evidence.Submit(ctx, r)
}

// UpdateEvidence patches an existing record.
func (s *Service) UpdateEvidence(ctx context.Context, id common.ID, patch *domevidence.Record) (*domevidence.Record, error) {
	return s.evidence.Update(ctx, id, patch)
}

// ListEvidence returns a property's records, most recent first.
func (s *Service) ListEvidence(ctx context.Context, address common.PropertyAddress) ([]*domevidence.Record, error) {
	return s.evidence.List(ctx, address)
}

// RemoveEvidence deletes a record and recomputes the selection.
func (s *Service) RemoveEvidence(ctx context.Context, id common.ID) error {
	return s.evidence.Remove(ctx, id)
}

// CurrentEstimate returns the property's automated value estimate, or nil
// when the comparable minimum is not met.
func (s *Service) CurrentEstimate(ctx context.Context, address common.PropertyAddress) (*valuation.Estimate, error) {
	set, err := s.evidence.CurrentSet(ctx, address)
	if err != nil {
		return nil, err
	}
	return s.estimator.Estimate(address, set, s.now()), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Classification and checking
// ─────────────────────────────────────────────────────────────────────────────

// snapshot gathers the field data and folds the current automated estimate
// into the valuation analysis payload, so the classifier sees the estimate as
// ordinary section data.
func (s *Service) snapshot(ctx context.Context, address common.PropertyAddress) (map[section.Key]section.Payload, section.InclusionConfig, error) {
	payloads, config, err := s.fields.Snapshot(ctx, address)
	if err != nil {
		return nil, nil, err
	}
	if payloads == nil {
		payloads = map[section.Key]section.Payload{}
	}

	set, err := s.evidence.CurrentSet(ctx, address)
	if err != nil {
		return nil, nil, err
	}
	if est := s.estimator.Estimate(address, set, s.now()); est != nil {
		va := payloads[section.KeyValuationAnalysis]
		if va == nil {
			va = section.Payload{}
		}
		if !va["market_value"].Supplied() {
			va["market_value"] = section.NewFieldValue(fmt.Sprintf("%.0f", est.Amount))
		}
		if !va["valuation_approach"].Supplied() {
			va["valuation_approach"] = section.NewFieldValue("direct comparison (automated)")
		}
		if !va["assessment_date"].Supplied() {
			va["assessment_date"] = section.NewFieldValue(est.ComputedAt.Format("2006-01-02"))
		}
		payloads[section.KeyValuationAnalysis] = va
	}
	return payloads, config, nil
}

// GetSectionStates classifies the property's current data snapshot.
func (s *Service) GetSectionStates(ctx context.Context, address common.PropertyAddress) (map[section.Key]*section.State, error) {
	if address == "" {
		return nil, errors.InvalidParam("property address is required")
	}
	payloads, config, err := s.snapshot(ctx, address)
	if err != nil {
		return nil, err
	}
	return s.classifier.Classify(payloads, config)
}

// RunContradictionCheck evaluates the rule set over the property's current
// snapshot.
func (s *Service) RunContradictionCheck(ctx context.Context, address common.PropertyAddress) (*contradiction.Report, error) {
	if address == "" {
		return nil, errors.InvalidParam("property address is required")
	}
	payloads, _, err := s.snapshot(ctx, address)
	if err != nil {
		return nil, err
	}
	return s.checker.Check(payloads, s.now()), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Compilation
// ─────────────────────────────────────────────────────────────────────────────

// CompileReport runs the full pipeline for one property.  Overlapping
// attempts for the same property are rejected with AlreadyCompiling; a
// blocked attempt is a normal outcome carrying the contradiction report.
func (s *Service) CompileReport(ctx context.Context, address common.PropertyAddress, override bool) (*domreport.Outcome, error) {
	if address == "" {
		return nil, errors.InvalidParam("property address is required")
	}
	if err := s.coord.Begin(address); err != nil {
		return nil, err
	}
	defer s.coord.End(address)

	payloads, config, err := s.snapshot(ctx, address)
	if err != nil {
		return nil, err
	}
	states, err := s.classifier.Classify(payloads, config)
	if err != nil {
		return nil, err
	}
	checkReport := s.checker.Check(payloads, s.now())

	outcome, err := s.compiler.Compile(ctx, &domreport.Input{
		PropertyAddress: address,
		States:          states,
		Payloads:        payloads,
		Contradictions:  checkReport,
		Override:        override,
		ComplianceFlags: s.complianceFlags,
		At:              s.now(),
	})
	if err != nil {
		return nil, err
	}

	if outcome.Blocked() {
		s.recordAudit(ctx, address, AuditCompileBlocked,
			fmt.Sprintf("%d validation error(s)", len(outcome.Validation.Errors)))
		return outcome, nil
	}

	if override && checkReport.HasContradictions {
		s.recordAudit(ctx, address, AuditCompileOverride,
			fmt.Sprintf("%d critical finding(s) overridden", checkReport.CriticalCount()))
	}

	if s.artifacts != nil {
		location, err := s.artifacts.PutReport(ctx, outcome.Report)
		if err != nil {
			// No partially-signed report may survive a storage failure.
			return nil, errors.Wrap(err, errors.ErrCodeArtifactStoreFailed,
				"compiled report could not be stored")
		}
		s.log.Info("report artifact stored",
			logging.String("property", address.String()),
			logging.String("location", location))
	}

	s.recordAudit(ctx, address, AuditCompileComplete, outcome.Report.DocumentHash)

	if s.events != nil {
		if err := s.events.PublishReportCompiled(ctx, outcome.Report); err != nil {
			s.log.Warn("report completion event not delivered",
				logging.String("property", address.String()),
				logging.Err(err))
		}
	}
	return outcome, nil
}

// AuditTrail returns the property's most recent audit entries.
func (s *Service) AuditTrail(ctx context.Context, address common.PropertyAddress, limit int) ([]*AuditEntry, error) {
	if s.audit == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	return s.audit.ListByProperty(ctx, address, limit)
}

func (s *Service) recordAudit(ctx context.Context, address common.PropertyAddress, action, detail string) {
	if s.audit == nil {
		return
	}
	entry := &AuditEntry{
		ID:              common.NewID(),
		PropertyAddress: address,
		Action:          action,
		Detail:          detail,
		OccurredAt:      s.now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warn("audit entry not recorded",
			logging.String("property", address.String()),
			logging.String("action", action),
			logging.Err(err))
	}
}
