package tileerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationKinds(t *testing.T) {
	cases := []struct {
		err        error
		kind       Kind
		validation bool
	}{
		{InvalidRequestType("jpeg"), KindInvalidRequestType, true},
		{InvalidStyle("bogus"), KindInvalidStyle, true},
		{InvalidColour("#zz", nil), KindInvalidColour, true},
		{MissingIndex(), KindMissingIndex, true},
		{GridNotPowerOfTwo(5), KindGridNotPowerOfTwo, true},
		{UpstreamUnavailable(nil), KindUpstreamUnavailable, false},
		{UpstreamMalformed(nil), KindUpstreamMalformed, false},
		{UpstreamTimeout(nil), KindUpstreamTimeout, false},
	}
	for _, c := range cases {
		var te *Error
		assert.ErrorAs(t, c.err, &te)
		assert.Equal(t, c.kind, te.Kind)
		assert.Equal(t, c.validation, te.IsValidation())
	}
}

func TestErrorMessageIncludesOffendingValue(t *testing.T) {
	assert.Contains(t, InvalidStyle("bogus").Error(), "bogus")
	assert.Contains(t, InvalidRequestType("jpeg").Error(), "jpeg")
	assert.Contains(t, GridNotPowerOfTwo(5).Error(), "5")
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := UpstreamUnavailable(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestErrorSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("handling tile: %w", MissingIndex())
	var te *Error
	assert.ErrorAs(t, wrapped, &te)
	assert.Equal(t, KindMissingIndex, te.Kind)
}
