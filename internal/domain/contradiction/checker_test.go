package contradiction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appraisehub/valuation-platform/internal/domain/section"
)

var checkNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func cleanInputs() map[section.Key]section.Payload {
	return map[section.Key]section.Payload{
		section.KeyLegalPlanning: section.NewPayload(map[string]string{
			"contract_date":   "2024-01-15",
			"settlement_date": "2024-03-01",
			"tenure":          "Freehold",
		}),
		section.KeyCertificate: section.NewPayload(map[string]string{
			"market_value":      "$500,000",
			"valuation_date":    "2024-05-01",
			"component_value_1": "300000",
			"component_value_2": "210000",
		}),
	}
}

func TestCheckCleanReport(t *testing.T) {
	c := NewChecker(0.10)

	report := c.Check(cleanInputs(), checkNow)
	assert.False(t, report.HasContradictions)
	assert.Empty(t, report.Findings)
	assert.Equal(t, checkNow, report.CheckedAt)
}

func TestCheckValueConsistencyBeyondTolerance(t *testing.T) {
	c := NewChecker(0.10)

	// 500,000 stated, components sum to 650,000: 30% divergence.
	inputs := cleanInputs()
	inputs[section.KeyCertificate] = section.NewPayload(map[string]string{
		"market_value":      "$500,000",
		"component_value_1": "400000",
		"component_value_2": "250000",
	})

	report := c.Check(inputs, checkNow)
	require.Len(t, report.Findings, 1)
	assert.True(t, report.HasContradictions)
	assert.Equal(t, SeverityCritical, report.Findings[0].Severity)
	assert.Equal(t, "value-consistency", report.Findings[0].RuleID)
	assert.Contains(t, report.Findings[0].Sections, section.KeyCertificate)
}

func TestCheckValueConsistencyWithinTolerance(t *testing.T) {
	c := NewChecker(0.10)

	// Components sum to 520,000: 4% divergence, inside tolerance.
	inputs := cleanInputs()
	inputs[section.KeyCertificate] = section.NewPayload(map[string]string{
		"market_value":      "500000",
		"component_value_1": "520000",
	})

	report := c.Check(inputs, checkNow)
	assert.False(t, report.HasContradictions)
}

func TestCheckDateOrdering(t *testing.T) {
	c := NewChecker(0.10)

	inputs := cleanInputs()
	inputs[section.KeyLegalPlanning] = section.NewPayload(map[string]string{
		"contract_date":   "2024-03-01",
		"settlement_date": "2024-01-15",
	})

	report := c.Check(inputs, checkNow)
	require.NotEmpty(t, report.Findings)
	assert.True(t, report.HasContradictions)
	assert.Equal(t, "date-ordering", report.Findings[0].RuleID)
}

func TestCheckLeaseholdWithoutTermIsWarning(t *testing.T) {
	c := NewChecker(0.10)

	inputs := cleanInputs()
	inputs[section.KeyLegalPlanning] = section.NewPayload(map[string]string{
		"tenure": "Leasehold",
	})

	report := c.Check(inputs, checkNow)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, SeverityWarning, report.Findings[0].Severity)
	assert.False(t, report.HasContradictions, "warnings never block")

	// Supplying the term clears the finding.
	inputs[section.KeyTenancy] = section.NewPayload(map[string]string{
		"lease_term": "5 years",
	})
	report = c.Check(inputs, checkNow)
	assert.Empty(t, report.Findings)
}

func TestCheckMissingFactsProduceNoFindings(t *testing.T) {
	c := NewChecker(0.10)

	report := c.Check(map[section.Key]section.Payload{}, checkNow)
	assert.Empty(t, report.Findings)
	assert.False(t, report.HasContradictions)
}

func TestCheckPlaceholderValuesAreNotFacts(t *testing.T) {
	c := NewChecker(0.10)

	inputs := map[section.Key]section.Payload{
		section.KeyCertificate: section.NewPayload(map[string]string{
			"market_value":      "Not Supplied",
			"component_value_1": "650000",
		}),
	}

	report := c.Check(inputs, checkNow)
	assert.Empty(t, report.Findings)
}

func TestCheckDeterministicOrder(t *testing.T) {
	c := NewChecker(0.10)

	// Two rules fire: date ordering and value consistency, always in
	// registry order.
	inputs := map[section.Key]section.Payload{
		section.KeyLegalPlanning: section.NewPayload(map[string]string{
			"contract_date":   "2024-03-01",
			"settlement_date": "2024-01-15",
		}),
		section.KeyCertificate: section.NewPayload(map[string]string{
			"market_value":      "500000",
			"component_value_1": "650000",
		}),
	}

	first := c.Check(inputs, checkNow)
	require.Len(t, first.Findings, 2)
	assert.Equal(t, "date-ordering", first.Findings[0].RuleID)
	assert.Equal(t, "value-consistency", first.Findings[1].RuleID)

	for i := 0; i < 5; i++ {
		again := c.Check(inputs, checkNow)
		assert.Equal(t, first.Findings, again.Findings)
	}
}

func TestCheckerCriticalCount(t *testing.T) {
	r := &Report{Findings: []Finding{
		{Severity: SeverityCritical},
		{Severity: SeverityWarning},
		{Severity: SeverityCritical},
	}}
	assert.Equal(t, 2, r.CriticalCount())
}
