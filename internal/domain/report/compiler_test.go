package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appraisehub/valuation-platform/internal/domain/contradiction"
	"github.com/appraisehub/valuation-platform/internal/domain/section"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/pkg/errors"
)

var compileNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type stubSigner struct {
	err   error
	calls []string
}

func (s *stubSigner) Sign(_ context.Context, documentHash string) (string, error) {
	s.calls = append(s.calls, documentHash)
	if s.err != nil {
		return "", s.err
	}
	return "sig1:" + documentHash[:16], nil
}

func fullInput(t *testing.T) *Input {
	t.Helper()
	payloads := map[section.Key]section.Payload{
		section.KeyLocation: section.NewPayload(map[string]string{
			"address":              "40 King St",
			"locality_description": "Established residential street",
		}),
		section.KeyPropertyDetails: section.NewPayload(map[string]string{
			"property_type": "House",
			"building_area": "185",
			"land_area":     "540",
		}),
		section.KeyCertificate: section.NewPayload(map[string]string{
			"market_value":   "925000",
			"valuer_name":    "J. Calder",
			"valuation_date": "2024-05-20",
		}),
	}
	states, err := section.NewClassifier().Classify(payloads, section.InclusionConfig{
		section.KeyTenancy: {Included: false},
	})
	require.NoError(t, err)

	return &Input{
		PropertyAddress: "40 King St",
		States:          states,
		Payloads:        payloads,
		Contradictions:  &contradiction.Report{},
		ComplianceFlags: map[string]bool{"api_pgv": true},
		At:              compileNow,
	}
}

func TestCompileComplete(t *testing.T) {
	signer := &stubSigner{}
	c := NewCompiler(signer, logging.NewNopLogger())

	outcome, err := c.Compile(context.Background(), fullInput(t))
	require.NoError(t, err)
	require.Equal(t, StateComplete, outcome.FinalState)
	require.NotNil(t, outcome.Report)

	r := outcome.Report
	assert.NotEmpty(t, r.DocumentHash)
	assert.Equal(t, "sig1:"+r.DocumentHash[:16], r.SignatureToken)
	assert.Equal(t, len(r.Sections), r.TotalPages)
	assert.Equal(t, map[string]bool{"api_pgv": true}, r.ComplianceFlags)

	// Pages are sequential from 1 in canonical order.
	for i, s := range r.Sections {
		assert.Equal(t, i+1, s.PageNumber)
		assert.NotEmpty(t, s.Hash)
	}
}

func TestCompileSkipsExcludedSections(t *testing.T) {
	c := NewCompiler(&stubSigner{}, logging.NewNopLogger())

	outcome, err := c.Compile(context.Background(), fullInput(t))
	require.NoError(t, err)
	require.NotNil(t, outcome.Report)

	for _, s := range outcome.Report.Sections {
		assert.NotEqual(t, section.KeyTenancy, s.Key, "excluded section must not be assembled")
	}
}

func TestCompileReproducible(t *testing.T) {
	c := NewCompiler(&stubSigner{}, logging.NewNopLogger())

	first, err := c.Compile(context.Background(), fullInput(t))
	require.NoError(t, err)
	require.NotNil(t, first.Report)

	for i := 0; i < 5; i++ {
		again, err := c.Compile(context.Background(), fullInput(t))
		require.NoError(t, err)
		require.NotNil(t, again.Report)
		assert.Equal(t, first.Report.DocumentHash, again.Report.DocumentHash)
		assert.Equal(t, first.Report.Sections, again.Report.Sections)
	}
}

func TestCompileHashIsOrderSensitive(t *testing.T) {
	sections := []CompiledSection{
		{Hash: hashContent("a")},
		{Hash: hashContent("b")},
	}
	forward := hashDocument(sections)
	reversed := hashDocument([]CompiledSection{sections[1], sections[0]})
	assert.NotEqual(t, forward, reversed)
}

func TestCompileBlockedByContradictions(t *testing.T) {
	signer := &stubSigner{}
	c := NewCompiler(signer, logging.NewNopLogger())

	in := fullInput(t)
	in.Contradictions = &contradiction.Report{
		HasContradictions: true,
		Findings: []contradiction.Finding{
			{Severity: contradiction.SeverityCritical, RuleID: "value-consistency"},
		},
	}

	outcome, err := c.Compile(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, StateBlocked, outcome.FinalState)
	assert.True(t, outcome.Blocked())
	assert.Nil(t, outcome.Report)
	assert.True(t, outcome.Validation.HasErrors())
	assert.Empty(t, signer.calls, "a blocked attempt must never reach signing")
}

func TestCompileOverrideRecordsWarning(t *testing.T) {
	c := NewCompiler(&stubSigner{}, logging.NewNopLogger())

	in := fullInput(t)
	in.Contradictions = &contradiction.Report{
		HasContradictions: true,
		Findings: []contradiction.Finding{
			{Severity: contradiction.SeverityCritical, RuleID: "value-consistency"},
		},
	}
	in.Override = true

	outcome, err := c.Compile(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, StateComplete, outcome.FinalState)
	require.NotNil(t, outcome.Report)

	found := false
	for _, w := range outcome.Report.Validation.Warnings {
		if w == "compiled with contradiction override: 1 critical finding(s) acknowledged" {
			found = true
		}
	}
	assert.True(t, found, "the override must be recorded, never silent")
}

func TestCompileBlockedOnMissingAddress(t *testing.T) {
	c := NewCompiler(&stubSigner{}, logging.NewNopLogger())

	in := fullInput(t)
	in.PropertyAddress = ""

	outcome, err := c.Compile(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, StateBlocked, outcome.FinalState)
	assert.Contains(t, outcome.Validation.Errors, "property address is required")
}

func TestCompileSigningFailure(t *testing.T) {
	signer := &stubSigner{err: errors.New(errors.ErrCodeSigningFailed, "service unavailable")}
	c := NewCompiler(signer, logging.NewNopLogger())

	outcome, err := c.Compile(context.Background(), fullInput(t))
	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Equal(t, errors.ErrCodeCompilationFailed, errors.GetCode(err))
}

func TestCompileIncompleteSectionWarnings(t *testing.T) {
	c := NewCompiler(&stubSigner{}, logging.NewNopLogger())

	in := fullInput(t)
	outcome, err := c.Compile(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, outcome.Report)

	// Sections with no data classify as investigation_required and warn.
	assert.NotEmpty(t, outcome.Report.Validation.Warnings)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateNotStarted, StateValidating))
	assert.True(t, CanTransition(StateValidating, StateBlocked))
	assert.True(t, CanTransition(StateValidating, StateAssembling))
	assert.True(t, CanTransition(StateSigning, StateComplete))
	assert.False(t, CanTransition(StateNotStarted, StateComplete))
	assert.False(t, CanTransition(StateBlocked, StateAssembling))
	assert.False(t, CanTransition(StateComplete, StateValidating))
}

func TestCoordinatorRejectsOverlappingAttempts(t *testing.T) {
	coord := NewCoordinator()

	require.NoError(t, coord.Begin("40 King St"))
	err := coord.Begin("40 King St")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAlreadyCompiling, errors.GetCode(err))

	// Different properties are independent.
	require.NoError(t, coord.Begin("7 Queen St"))

	coord.End("40 King St")
	require.NoError(t, coord.Begin("40 King St"))
}
