package contradiction

import (
	"time"

	"github.com/appraisehub/valuation-platform/internal/domain/section"
)

// Report aggregates the findings of one checker run.
type Report struct {
	Findings []Finding `json:"findings"`

	// HasContradictions is true iff at least one critical finding exists.
	// Warnings never block compilation.
	HasContradictions bool `json:"has_contradictions"`

	CheckedAt time.Time `json:"checked_at"`
}

// CriticalCount returns the number of critical findings.
func (r *Report) CriticalCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityCritical {
			n++
		}
	}
	return n
}

// Checker evaluates an ordered rule registry over section data.  The rules
// are independent; the fixed order only makes the findings list reproducible.
// Check is pure and safe for concurrent use.
type Checker struct {
	rules []Rule
}

// NewChecker constructs a Checker with the default rule set.  valueTolerance
// is the relative tolerance of the value-consistency rule; zero or negative
// falls back to 10%.
func NewChecker(valueTolerance float64) *Checker {
	if valueTolerance <= 0 {
		valueTolerance = 0.10
	}
	return &Checker{
		rules: []Rule{
			dateOrderingRule{},
			valueConsistencyRule{tolerance: valueTolerance},
			leaseholdRule{},
			valuationDateRule{},
		},
	}
}

// WithRule appends a rule to the registry.  Registration order is evaluation
// order.
func (c *Checker) WithRule(r Rule) *Checker {
	c.rules = append(c.rules, r)
	return c
}

// Check extracts facts from the payloads and evaluates every rule in registry
// order.
func (c *Checker) Check(inputs map[section.Key]section.Payload, at time.Time) *Report {
	facts := FactsFromPayloads(inputs)

	report := &Report{CheckedAt: at}
	for _, rule := range c.rules {
		for _, finding := range rule.Evaluate(facts) {
			report.Findings = append(report.Findings, finding)
			if finding.Severity == SeverityCritical {
				report.HasContradictions = true
			}
		}
	}
	return report
}
