package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/appraisehub/valuation-platform/internal/domain/contradiction"
	"github.com/appraisehub/valuation-platform/internal/domain/section"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/pkg/errors"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// Input is the immutable snapshot one compilation attempt works from.
type Input struct {
	PropertyAddress common.PropertyAddress
	States          map[section.Key]*section.State
	Payloads        map[section.Key]section.Payload
	Contradictions  *contradiction.Report

	// Override forces assembly despite critical contradictions.  The
	// override is always recorded in the validation warnings, never silent.
	Override bool

	// ComplianceFlags are copied verbatim onto the compiled report.
	ComplianceFlags map[string]bool

	At time.Time
}

// Compiler drives the compile state machine over an input snapshot.  One
// Compiler is shared across attempts; each attempt's state is local to the
// Compile call.
type Compiler struct {
	signer Signer
	log    logging.Logger
}

// NewCompiler constructs a Compiler around a signing credential.
func NewCompiler(signer Signer, log logging.Logger) *Compiler {
	return &Compiler{signer: signer, log: log.Named("compiler")}
}

// attempt tracks one run through the state machine.
type attempt struct {
	state State
}

func (a *attempt) to(next State) error {
	if !CanTransition(a.state, next) {
		return errors.New(errors.ErrCodeCompilationFailed,
			fmt.Sprintf("illegal compile transition %s -> %s", a.state, next))
	}
	a.state = next
	return nil
}

// Compile runs the full state machine: validate, assemble, hash, sign.  A
// blocked attempt is a normal Outcome, not an error; errors are reserved for
// broken invariants and signing failure after retry exhaustion.
//
// Re-running Compile with an unchanged input reaches Complete with an
// identical document hash.
func (c *Compiler) Compile(ctx context.Context, in *Input) (*Outcome, error) {
	a := &attempt{state: StateNotStarted}
	if err := a.to(StateValidating); err != nil {
		return nil, err
	}

	validation := c.validate(in)
	outcome := &Outcome{Contradictions: in.Contradictions}

	blockedByContradictions := in.Contradictions != nil && in.Contradictions.HasContradictions && !in.Override
	if validation.HasErrors() || blockedByContradictions {
		if blockedByContradictions {
			validation.AddError(fmt.Sprintf("%d critical contradiction finding(s) present",
				in.Contradictions.CriticalCount()))
		}
		if err := a.to(StateBlocked); err != nil {
			return nil, err
		}
		outcome.FinalState = a.state
		outcome.Validation = *validation
		c.log.Warn("compilation blocked",
			logging.String("property", in.PropertyAddress.String()),
			logging.Int("errors", len(validation.Errors)))
		return outcome, nil
	}

	if in.Contradictions != nil && in.Contradictions.HasContradictions && in.Override {
		validation.AddWarning(fmt.Sprintf(
			"compiled with contradiction override: %d critical finding(s) acknowledged",
			in.Contradictions.CriticalCount()))
	}

	if err := a.to(StateAssembling); err != nil {
		return nil, err
	}
	sections := c.assemble(in, validation)

	if err := a.to(StateHashing); err != nil {
		return nil, err
	}
	for i := range sections {
		sections[i].Hash = hashContent(sections[i].Content)
	}
	documentHash := hashDocument(sections)

	if err := a.to(StateSigning); err != nil {
		return nil, err
	}
	token, err := c.signer.Sign(ctx, documentHash)
	if err != nil {
		if terr := a.to(StateBlocked); terr != nil {
			return nil, terr
		}
		return nil, errors.Wrap(err, errors.ErrCodeCompilationFailed,
			"signing failed; no report was issued")
	}

	if err := a.to(StateComplete); err != nil {
		return nil, err
	}

	report := &CompiledReport{
		PropertyAddress: in.PropertyAddress,
		Sections:        sections,
		TotalPages:      len(sections),
		DocumentHash:    documentHash,
		SignatureToken:  token,
		ComplianceFlags: in.ComplianceFlags,
		Validation:      *validation,
		CompiledAt:      in.At,
	}
	outcome.FinalState = a.state
	outcome.Report = report
	outcome.Validation = *validation

	c.log.Info("report compiled",
		logging.String("property", in.PropertyAddress.String()),
		logging.Int("pages", report.TotalPages),
		logging.String("document_hash", documentHash))
	return outcome, nil
}

// validate collects the hard blockers and soft issues of the attempt.
func (c *Compiler) validate(in *Input) *ValidationResult {
	v := &ValidationResult{}
	if in.PropertyAddress == "" {
		v.AddError("property address is required")
	}
	if len(in.States) == 0 {
		v.AddError("no section states supplied")
	}
	for _, key := range section.CanonicalOrder {
		state, ok := in.States[key]
		if !ok {
			continue
		}
		if state.Status == section.StatusInvestigationRequired {
			v.AddWarning(fmt.Sprintf("section %s is incomplete (%.0f%%)", key, state.Completion))
		}
	}
	return v
}

// assemble walks the canonical order, snapshots every included section's
// content, and assigns sequential page numbers starting at 1.  Excluded
// sections leave no gap in the numbering.
func (c *Compiler) assemble(in *Input, v *ValidationResult) []CompiledSection {
	var out []CompiledSection
	page := 0
	for _, key := range section.CanonicalOrder {
		state, ok := in.States[key]
		if !ok || !state.IncludedInReport() {
			continue
		}
		page++
		out = append(out, CompiledSection{
			Key:        key,
			Title:      state.Title,
			Content:    snapshotContent(key, in.Payloads[key]),
			PageNumber: page,
			Complete:   state.Status == section.StatusSupplied,
		})
	}
	if len(out) == 0 {
		v.AddWarning("no sections were included in the report")
	}
	return out
}

// snapshotContent serializes a payload into a canonical line-per-field form.
// Field names are sorted so the snapshot, and therefore every hash above it,
// is independent of map iteration order.
func snapshotContent(key section.Key, payload section.Payload) string {
	var b strings.Builder
	b.WriteString("section: ")
	b.WriteString(string(key))
	b.WriteByte('\n')

	names := make([]string, 0, len(payload))
	for name := range payload {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := payload[name]
		fmt.Fprintf(&b, "%s (%s): %s\n", name, f.Presence, f.Value)
	}
	return b.String()
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// hashDocument digests the ordered concatenation of section hashes.
func hashDocument(sections []CompiledSection) string {
	h := sha256.New()
	for _, s := range sections {
		h.Write([]byte(s.Hash))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ─────────────────────────────────────────────────────────────────────────────
// Coordinator — concurrent-attempt guard
// ─────────────────────────────────────────────────────────────────────────────

// Coordinator rejects overlapping compile attempts for the same property so
// two signature tokens can never be issued for diverging snapshots.
type Coordinator struct {
	mu       sync.Mutex
	inFlight map[common.PropertyAddress]bool
}

// NewCoordinator constructs an empty Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{inFlight: make(map[common.PropertyAddress]bool)}
}

// Begin reserves the property for one attempt.  A second Begin before End
// returns an ErrCodeAlreadyCompiling AppError.
func (c *Coordinator) Begin(address common.PropertyAddress) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[address] {
		return errors.New(errors.ErrCodeAlreadyCompiling,
			"a compilation for this property is already in progress").
			WithDetail(address.String())
	}
	c.inFlight[address] = true
	return nil
}

// End releases the property.
func (c *Coordinator) End(address common.PropertyAddress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, address)
}
