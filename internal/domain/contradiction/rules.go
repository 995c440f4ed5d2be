// Package contradiction runs a deterministic rule set over a report's section
// data looking for mutually inconsistent facts.  Rules are independent of one
// another; the registry order only fixes the order findings are reported in.
package contradiction

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/appraisehub/valuation-platform/internal/domain/section"
)

// Severity ranks a finding.  Critical findings block compilation unless the
// caller explicitly overrides; warnings never block.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// Finding is one detected inconsistency.
type Finding struct {
	Severity Severity      `json:"severity"`
	RuleID   string        `json:"rule_id"`
	Message  string        `json:"message"`
	Sections []section.Key `json:"sections"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Facts — the typed view rules evaluate against
// ─────────────────────────────────────────────────────────────────────────────

// Facts is the cross-section data snapshot the rules inspect.  Pointer fields
// are nil when the underlying data was absent or unparseable; rules treat
// missing facts as "cannot evaluate", never as a finding.
type Facts struct {
	ContractDate    *time.Time
	SettlementDate  *time.Time
	ValuationDate   *time.Time
	MarketValue     *float64
	ComponentValues []float64
	Leasehold       bool
	LeaseTerm       string
}

// dateLayouts are accepted in ingestion order.
var dateLayouts = []string{"2006-01-02", "02/01/2006"}

func parseDate(f section.FieldValue) *time.Time {
	if !f.Supplied() {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(f.Value)); err == nil {
			return &t
		}
	}
	return nil
}

func parseAmount(f section.FieldValue) *float64 {
	if !f.Supplied() {
		return nil
	}
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(f.Value)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

// FactsFromPayloads extracts the rule-relevant facts from the section
// payloads.  Component values are any certificate fields named
// "component_value_*", gathered in field-name order via the payload's sorted
// keys at the call site; because the extraction only sums them, ordering does
// not affect the outcome.
func FactsFromPayloads(inputs map[section.Key]section.Payload) *Facts {
	facts := &Facts{}

	if legal, ok := inputs[section.KeyLegalPlanning]; ok {
		facts.ContractDate = parseDate(legal["contract_date"])
		facts.SettlementDate = parseDate(legal["settlement_date"])
		if tenure := legal["tenure"]; tenure.Supplied() {
			facts.Leasehold = strings.EqualFold(strings.TrimSpace(tenure.Value), "leasehold")
		}
	}
	if tenancy, ok := inputs[section.KeyTenancy]; ok {
		if term := tenancy["lease_term"]; term.Supplied() {
			facts.LeaseTerm = term.Value
		}
	}
	if cert, ok := inputs[section.KeyCertificate]; ok {
		facts.MarketValue = parseAmount(cert["market_value"])
		facts.ValuationDate = parseDate(cert["valuation_date"])
		for name, value := range cert {
			if strings.HasPrefix(name, "component_value_") {
				if v := parseAmount(value); v != nil {
					facts.ComponentValues = append(facts.ComponentValues, *v)
				}
			}
		}
	}
	return facts
}

// ─────────────────────────────────────────────────────────────────────────────
// Rules
// ─────────────────────────────────────────────────────────────────────────────

// Rule is one contradiction predicate.  Evaluate must be pure and may return
// zero or more findings.
type Rule interface {
	ID() string
	Evaluate(f *Facts) []Finding
}

// dateOrderingRule flags a settlement date preceding the contract date.
type dateOrderingRule struct{}

func (dateOrderingRule) ID() string { return "date-ordering" }

func (r dateOrderingRule) Evaluate(f *Facts) []Finding {
	if f.ContractDate == nil || f.SettlementDate == nil {
		return nil
	}
	if f.SettlementDate.Before(*f.ContractDate) {
		return []Finding{{
			Severity: SeverityCritical,
			RuleID:   r.ID(),
			Message: fmt.Sprintf("settlement date %s precedes contract date %s",
				f.SettlementDate.Format("2006-01-02"), f.ContractDate.Format("2006-01-02")),
			Sections: []section.Key{section.KeyLegalPlanning},
		}}
	}
	return nil
}

// valueConsistencyRule flags a stated market value diverging from the sum of
// stated component values beyond a relative tolerance.
type valueConsistencyRule struct {
	tolerance float64
}

func (valueConsistencyRule) ID() string { return "value-consistency" }

func (r valueConsistencyRule) Evaluate(f *Facts) []Finding {
	if f.MarketValue == nil || len(f.ComponentValues) == 0 || *f.MarketValue <= 0 {
		return nil
	}
	var sum float64
	for _, v := range f.ComponentValues {
		sum += v
	}
	diff := math.Abs(sum-*f.MarketValue) / *f.MarketValue
	if diff > r.tolerance {
		return []Finding{{
			Severity: SeverityCritical,
			RuleID:   r.ID(),
			Message: fmt.Sprintf("stated market value %.0f differs from component sum %.0f by %.1f%% (tolerance %.0f%%)",
				*f.MarketValue, sum, diff*100, r.tolerance*100),
			Sections: []section.Key{section.KeyCertificate, section.KeyValuationAnalysis},
		}}
	}
	return nil
}

// leaseholdRule flags a leasehold tenure with no lease term supplied.
type leaseholdRule struct{}

func (leaseholdRule) ID() string { return "leasehold-term" }

func (r leaseholdRule) Evaluate(f *Facts) []Finding {
	if f.Leasehold && f.LeaseTerm == "" {
		return []Finding{{
			Severity: SeverityWarning,
			RuleID:   r.ID(),
			Message:  "tenure is leasehold but no lease term is supplied",
			Sections: []section.Key{section.KeyLegalPlanning, section.KeyTenancy},
		}}
	}
	return nil
}

// valuationDateRule flags a valuation date preceding the settlement date.
type valuationDateRule struct{}

func (valuationDateRule) ID() string { return "valuation-date" }

func (r valuationDateRule) Evaluate(f *Facts) []Finding {
	if f.ValuationDate == nil || f.SettlementDate == nil {
		return nil
	}
	if f.ValuationDate.Before(*f.SettlementDate) {
		return []Finding{{
			Severity: SeverityWarning,
			RuleID:   r.ID(),
			Message: fmt.Sprintf("valuation date %s precedes settlement date %s",
				f.ValuationDate.Format("2006-01-02"), f.SettlementDate.Format("2006-01-02")),
			Sections: []section.Key{section.KeyCertificate, section.KeyLegalPlanning},
		}}
	}
	return nil
}
