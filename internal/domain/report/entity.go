// Package report implements deterministic report compilation: assembling the
// included sections in canonical order, hashing each section and the whole
// document, and attaching a signature token.  Compilation is modelled as an
// explicit state machine so blocked attempts, contradiction overrides, and
// concurrent-attempt rejection are first-class outcomes rather than ad hoc
// flags.
package report

import (
	"context"
	"time"

	"github.com/appraisehub/valuation-platform/internal/domain/contradiction"
	"github.com/appraisehub/valuation-platform/internal/domain/section"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Compile state machine
// ─────────────────────────────────────────────────────────────────────────────

// State is one stage of a compilation attempt.
type State string

const (
	StateNotStarted State = "not_started"
	StateValidating State = "validating"
	StateBlocked    State = "blocked"
	StateAssembling State = "assembling"
	StateHashing    State = "hashing"
	StateSigning    State = "signing"
	StateComplete   State = "complete"
)

// allowedTransitions is the full transition relation.  Blocked and Complete
// are terminal.
var allowedTransitions = map[State][]State{
	StateNotStarted: {StateValidating},
	StateValidating: {StateBlocked, StateAssembling},
	StateAssembling: {StateHashing},
	StateHashing:    {StateSigning},
	StateSigning:    {StateComplete, StateBlocked},
	StateBlocked:    {},
	StateComplete:   {},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to State) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the state ends an attempt.
func (s State) Terminal() bool {
	return s == StateBlocked || s == StateComplete
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// ValidationResult carries the hard blockers and soft issues collected during
// the validating stage.  An attempt with errors terminates in Blocked;
// warnings travel with the completed report.
type ValidationResult struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// AddError appends a hard blocker.
func (v *ValidationResult) AddError(msg string) { v.Errors = append(v.Errors, msg) }

// AddWarning appends a soft issue.
func (v *ValidationResult) AddWarning(msg string) { v.Warnings = append(v.Warnings, msg) }

// HasErrors reports whether any hard blocker was collected.
func (v *ValidationResult) HasErrors() bool { return len(v.Errors) > 0 }

// ─────────────────────────────────────────────────────────────────────────────
// Compiled artifacts
// ─────────────────────────────────────────────────────────────────────────────

// CompiledSection is one assembled chapter of the output document.
type CompiledSection struct {
	Key        section.Key `json:"key"`
	Title      string      `json:"title"`
	Content    string      `json:"content"`
	PageNumber int         `json:"page_number"`
	Complete   bool        `json:"complete"`
	Hash       string      `json:"hash"`
}

// CompiledReport is the final, hashed, signed assembly.
type CompiledReport struct {
	PropertyAddress common.PropertyAddress `json:"property_address"`
	Sections        []CompiledSection      `json:"sections"`
	TotalPages      int                    `json:"total_pages"`

	// DocumentHash is a deterministic, order-sensitive digest over the
	// concatenated section hashes.  Identical content in identical order
	// always reproduces it.
	DocumentHash string `json:"document_hash"`

	// SignatureToken is the opaque token the signing credential derived from
	// the document hash.
	SignatureToken string `json:"signature_token"`

	// ComplianceFlags are copied verbatim from configuration, never computed.
	ComplianceFlags map[string]bool `json:"compliance_flags,omitempty"`

	Validation ValidationResult `json:"validation"`
	CompiledAt time.Time        `json:"compiled_at"`
}

// Outcome is the result of one compilation attempt.  Report is non-nil only
// when FinalState is Complete; a blocked attempt carries the validation
// result and the contradiction report that stopped it.
type Outcome struct {
	FinalState     State                 `json:"final_state"`
	Report         *CompiledReport       `json:"report,omitempty"`
	Validation     ValidationResult      `json:"validation"`
	Contradictions *contradiction.Report `json:"contradictions,omitempty"`
}

// Blocked reports whether the attempt terminated without a report.
func (o *Outcome) Blocked() bool { return o.FinalState == StateBlocked }

// Signer turns a document hash into a signature token.  Implementations must
// be deterministic with respect to the hash and their held credential;
// transient failures are retried at the implementation's discretion before an
// error surfaces here.
type Signer interface {
	Sign(ctx context.Context, documentHash string) (string, error)
}
