package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appraisehub/valuation-platform/pkg/errors"
)

func locationPayload(address, locality string) Payload {
	return NewPayload(map[string]string{
		"address":              address,
		"locality_description": locality,
	})
}

func TestNewFieldValue(t *testing.T) {
	assert.Equal(t, PresenceAbsent, NewFieldValue("").Presence)
	assert.Equal(t, PresencePlaceholder, NewFieldValue("Required").Presence)
	assert.Equal(t, PresencePlaceholder, NewFieldValue("Not Supplied").Presence)
	assert.Equal(t, PresenceSupplied, NewFieldValue("Inner-west residential locality").Presence)
}

func TestClassifyFullySupplied(t *testing.T) {
	c := NewClassifier()
	inputs := map[Key]Payload{
		KeyLocation: locationPayload("40 King St", "Established residential street"),
	}

	states, err := c.Classify(inputs, InclusionConfig{})
	require.NoError(t, err)

	loc := states[KeyLocation]
	assert.Equal(t, StatusSupplied, loc.Status)
	assert.Equal(t, 100.0, loc.Completion)
	assert.Empty(t, loc.MissingFields)
}

func TestClassifyPartialCompletion(t *testing.T) {
	c := NewClassifier()
	inputs := map[Key]Payload{
		KeyLocation: locationPayload("40 King St", ""),
	}

	states, err := c.Classify(inputs, InclusionConfig{})
	require.NoError(t, err)

	loc := states[KeyLocation]
	assert.Equal(t, StatusInvestigationRequired, loc.Status)
	assert.Equal(t, 50.0, loc.Completion)
	assert.Equal(t, []string{"locality_description"}, loc.MissingFields)
}

func TestClassifyPlaceholderNeverCounts(t *testing.T) {
	c := NewClassifier()
	inputs := map[Key]Payload{
		KeyLocation: locationPayload("40 King St", "Not Supplied"),
	}

	states, err := c.Classify(inputs, InclusionConfig{})
	require.NoError(t, err)

	loc := states[KeyLocation]
	assert.Equal(t, StatusInvestigationRequired, loc.Status)
	assert.Equal(t, 50.0, loc.Completion)
}

func TestClassifyExcludedOptionalSection(t *testing.T) {
	c := NewClassifier()
	config := InclusionConfig{
		KeyTenancy: {Included: false, Required: false},
	}

	// No data at all: never started, not_supplied.
	states, err := c.Classify(map[Key]Payload{}, config)
	require.NoError(t, err)
	assert.Equal(t, StatusNotSupplied, states[KeyTenancy].Status)
	assert.Equal(t, 0.0, states[KeyTenancy].Completion)
	assert.False(t, states[KeyTenancy].IncludedInReport())

	// Data exists but the section is switched off: not_applicable.
	inputs := map[Key]Payload{
		KeyTenancy: NewPayload(map[string]string{"lease_term": "5 years"}),
	}
	states, err = c.Classify(inputs, config)
	require.NoError(t, err)
	assert.Equal(t, StatusNotApplicable, states[KeyTenancy].Status)
	assert.False(t, states[KeyTenancy].IncludedInReport())
}

func TestClassifyRequiredSectionCannotBeExcluded(t *testing.T) {
	c := NewClassifier()
	config := InclusionConfig{
		KeyCertificate: {Included: false, Required: true},
	}

	_, err := c.Classify(map[Key]Payload{}, config)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSectionRequiredExcluded, errors.GetCode(err))
}

func TestClassifyUnknownSection(t *testing.T) {
	c := NewClassifier()

	_, err := c.Classify(map[Key]Payload{"mystery": {}}, InclusionConfig{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSectionUnknown, errors.GetCode(err))

	_, err = c.Classify(map[Key]Payload{}, InclusionConfig{"mystery": {Included: true}})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSectionUnknown, errors.GetCode(err))
}

func TestClassifyNoRequiredFields(t *testing.T) {
	c := NewClassifier()

	states, err := c.Classify(map[Key]Payload{}, InclusionConfig{})
	require.NoError(t, err)
	assert.Equal(t, StatusSupplied, states[KeyAnnexures].Status)
	assert.Equal(t, 100.0, states[KeyAnnexures].Completion)
}

func TestClassifyCoversEveryCanonicalSection(t *testing.T) {
	c := NewClassifier()

	states, err := c.Classify(map[Key]Payload{}, InclusionConfig{})
	require.NoError(t, err)
	require.Len(t, states, len(CanonicalOrder))
	for _, k := range CanonicalOrder {
		require.Contains(t, states, k)
	}
}

func TestClassifyPure(t *testing.T) {
	c := NewClassifier()
	inputs := map[Key]Payload{
		KeyLocation:        locationPayload("40 King St", "Required"),
		KeyPropertyDetails: NewPayload(map[string]string{"property_type": "House", "building_area": "185"}),
	}
	config := InclusionConfig{
		KeyTenancy: {Included: false},
	}

	first, err := c.Classify(inputs, config)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Classify(inputs, config)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
