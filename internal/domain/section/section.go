// Package section models the logical chapters of a valuation report and the
// pure classification of their data-completeness.  Nothing in this package
// performs I/O: payloads and inclusion configuration arrive as immutable
// snapshots and classification is a pure function over them.
package section

// Key identifies one logical report section.
type Key string

const (
	KeyLocation          Key = "location"
	KeyLegalPlanning     Key = "legal_planning"
	KeyTenancy           Key = "tenancy"
	KeyStatutory         Key = "statutory"
	KeyMarketCommentary  Key = "market_commentary"
	KeyPropertyDetails   Key = "property_details"
	KeyEnvironmental     Key = "environmental"
	KeyRisk              Key = "risk"
	KeyValuationAnalysis Key = "valuation_analysis"
	KeyCertificate       Key = "certificate"
	KeyAnnexures         Key = "annexures"
)

// CanonicalOrder is the fixed compile and classification order.  It is a
// first-class artifact: iteration anywhere in the pipeline goes through this
// list, never through map iteration.
var CanonicalOrder = []Key{
	KeyLocation,
	KeyLegalPlanning,
	KeyTenancy,
	KeyStatutory,
	KeyMarketCommentary,
	KeyPropertyDetails,
	KeyEnvironmental,
	KeyRisk,
	KeyValuationAnalysis,
	KeyCertificate,
	KeyAnnexures,
}

// IsKnown reports whether k is one of the canonical section keys.
func IsKnown(k Key) bool {
	for _, known := range CanonicalOrder {
		if known == k {
			return true
		}
	}
	return false
}

// Title returns the section's display title.
func (k Key) Title() string {
	if t, ok := sectionTitles[k]; ok {
		return t
	}
	return string(k)
}

var sectionTitles = map[Key]string{
	KeyLocation:          "Location",
	KeyLegalPlanning:     "Legal & Planning",
	KeyTenancy:           "Tenancy",
	KeyStatutory:         "Statutory Assessments",
	KeyMarketCommentary:  "Market Commentary",
	KeyPropertyDetails:   "Property Details",
	KeyEnvironmental:     "Environmental & Sustainability",
	KeyRisk:              "Risk Assessment",
	KeyValuationAnalysis: "Valuation Analysis",
	KeyCertificate:       "Valuation Certificate",
	KeyAnnexures:         "Annexures",
}

// ─────────────────────────────────────────────────────────────────────────────
// Field values
// ─────────────────────────────────────────────────────────────────────────────

// Presence is the explicit supplied/placeholder/absent state of one field.
// It replaces sentinel-string comparison in the data model; the sentinels
// survive only at the ingestion boundary for payloads arriving from the
// editing layer.
type Presence string

const (
	// PresenceSupplied means a real value is present.
	PresenceSupplied Presence = "supplied"

	// PresencePlaceholder means the editing layer wrote a reserved marker
	// ("Required", "Not Supplied") instead of data.  Placeholders never count
	// toward completion.
	PresencePlaceholder Presence = "placeholder"

	// PresenceAbsent means the field is missing entirely.
	PresenceAbsent Presence = "absent"
)

// placeholderSentinels are the reserved marker strings the editing layer uses
// for unfilled fields.
var placeholderSentinels = map[string]bool{
	"Required":     true,
	"Not Supplied": true,
}

// FieldValue is one field of a section payload: its raw value plus its
// explicit presence state.
type FieldValue struct {
	Value    string   `json:"value"`
	Presence Presence `json:"presence"`
}

// NewFieldValue converts a raw string from the editing layer into a
// FieldValue, mapping the reserved sentinels to PresencePlaceholder and the
// empty string to PresenceAbsent.
func NewFieldValue(raw string) FieldValue {
	switch {
	case raw == "":
		return FieldValue{Presence: PresenceAbsent}
	case placeholderSentinels[raw]:
		return FieldValue{Value: raw, Presence: PresencePlaceholder}
	default:
		return FieldValue{Value: raw, Presence: PresenceSupplied}
	}
}

// Supplied reports whether the field carries real data.
func (f FieldValue) Supplied() bool { return f.Presence == PresenceSupplied }

// Payload is a section's bound data keyed by field name.  The classifier only
// inspects the fields named in the section's required-field list; everything
// else is opaque content carried through to compilation.
type Payload map[string]FieldValue

// NewPayload converts a raw string map into a Payload.
func NewPayload(raw map[string]string) Payload {
	p := make(Payload, len(raw))
	for name, value := range raw {
		p[name] = NewFieldValue(value)
	}
	return p
}

// HasAnyData reports whether any field carries supplied or placeholder
// content.  Excluded sections with data classify differently from excluded
// sections that were never touched.
func (p Payload) HasAnyData() bool {
	for _, f := range p {
		if f.Presence != PresenceAbsent {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Inclusion configuration and section state
// ─────────────────────────────────────────────────────────────────────────────

// InclusionRule says whether a section participates in the report and whether
// it is mandatory.
type InclusionRule struct {
	Included bool `json:"included"`
	Required bool `json:"required"`
}

// InclusionConfig maps section keys to their inclusion rules.  Sections
// without an entry default to included and optional.
type InclusionConfig map[Key]InclusionRule

// RuleFor returns the effective rule for a key.
func (c InclusionConfig) RuleFor(k Key) InclusionRule {
	if r, ok := c[k]; ok {
		return r
	}
	return InclusionRule{Included: true}
}

// Status is the classified completeness state of a section.
type Status string

const (
	// StatusSupplied means every required field carries real data.
	StatusSupplied Status = "supplied"

	// StatusInvestigationRequired means the section is included but some
	// required data is placeholder or absent.
	StatusInvestigationRequired Status = "investigation_required"

	// StatusNotSupplied means the section is excluded and carries no data at
	// all.
	StatusNotSupplied Status = "not_supplied"

	// StatusNotApplicable means the section is excluded by configuration.
	StatusNotApplicable Status = "not_applicable"
)

// State is one section's classification result.
type State struct {
	Key            Key      `json:"key"`
	Title          string   `json:"title"`
	Status         Status   `json:"status"`
	Completion     float64  `json:"completion"`
	RequiredFields []string `json:"required_fields"`
	MissingFields  []string `json:"missing_fields,omitempty"`
}

// IncludedInReport reports whether the compiler should assemble this section.
func (s *State) IncludedInReport() bool {
	return s.Status != StatusNotApplicable && s.Status != StatusNotSupplied
}

// requiredFields is the per-section checklist the classifier scores against.
// Order within each list is the reporting order for missing-field messages.
var requiredFields = map[Key][]string{
	KeyLocation:          {"address", "locality_description"},
	KeyLegalPlanning:     {"title_reference", "zoning", "tenure"},
	KeyTenancy:           {"lease_term", "commencement_date", "passing_rent"},
	KeyStatutory:         {"land_value", "assessment_date"},
	KeyMarketCommentary:  {"market_overview", "sales_activity"},
	KeyPropertyDetails:   {"property_type", "building_area", "land_area"},
	KeyEnvironmental:     {"contamination_status"},
	KeyRisk:              {"risk_rating", "risk_commentary"},
	KeyValuationAnalysis: {"market_value", "valuation_approach", "assessment_date"},
	KeyCertificate:       {"market_value", "valuer_name", "valuation_date"},
	KeyAnnexures:         {},
}

// RequiredFields returns the checklist for a section key.
func RequiredFields(k Key) []string {
	return requiredFields[k]
}
