package section

import (
	"fmt"

	"github.com/appraisehub/valuation-platform/pkg/errors"
)

// Classifier scores section payloads against their required-field checklists
// and an inclusion configuration.  Classify is pure and reentrant: identical
// inputs always yield identical states, so it is safe to re-run on every
// upstream change and to call concurrently.
type Classifier struct {
	// thresholds holds per-section completion percentages required for the
	// supplied status.  Sections without an entry require 100.
	thresholds map[Key]float64
}

// NewClassifier constructs a Classifier with the default thresholds.
func NewClassifier() *Classifier {
	return &Classifier{thresholds: map[Key]float64{}}
}

// thresholdFor returns the completion percentage at which a section counts as
// supplied.
func (c *Classifier) thresholdFor(k Key) float64 {
	if t, ok := c.thresholds[k]; ok {
		return t
	}
	return 100
}

// Classify scores every canonical section.  Inputs for unknown sections are
// rejected; a required section excluded by configuration is a configuration
// error, not a classification result.
//
// The returned map has one State per canonical section regardless of whether
// the caller supplied a payload for it.
func (c *Classifier) Classify(inputs map[Key]Payload, config InclusionConfig) (map[Key]*State, error) {
	for k := range inputs {
		if !IsKnown(k) {
			return nil, errors.New(errors.ErrCodeSectionUnknown,
				fmt.Sprintf("unknown section key %q", k))
		}
	}
	for k, rule := range config {
		if !IsKnown(k) {
			return nil, errors.New(errors.ErrCodeSectionUnknown,
				fmt.Sprintf("unknown section key %q in inclusion config", k))
		}
		if rule.Required && !rule.Included {
			return nil, errors.New(errors.ErrCodeSectionRequiredExcluded,
				fmt.Sprintf("required section %q cannot be excluded", k))
		}
	}

	states := make(map[Key]*State, len(CanonicalOrder))
	for _, k := range CanonicalOrder {
		states[k] = c.classifyOne(k, inputs[k], config.RuleFor(k))
	}
	return states, nil
}

func (c *Classifier) classifyOne(k Key, payload Payload, rule InclusionRule) *State {
	required := RequiredFields(k)
	state := &State{
		Key:            k,
		Title:          k.Title(),
		RequiredFields: required,
	}

	if !rule.Included {
		if payload.HasAnyData() {
			state.Status = StatusNotApplicable
		} else {
			state.Status = StatusNotSupplied
		}
		return state
	}

	if len(required) == 0 {
		state.Status = StatusSupplied
		state.Completion = 100
		return state
	}

	supplied := 0
	for _, field := range required {
		if payload[field].Supplied() {
			supplied++
		} else {
			state.MissingFields = append(state.MissingFields, field)
		}
	}
	state.Completion = float64(supplied) / float64(len(required)) * 100

	if state.Completion >= c.thresholdFor(k) {
		state.Status = StatusSupplied
	} else {
		state.Status = StatusInvestigationRequired
	}
	return state
}
