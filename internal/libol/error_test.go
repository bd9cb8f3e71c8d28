package libol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrFormats(t *testing.T) {
	err := NewErr("device %s not found", "eth0")
	assert.EqualError(t, err, "device eth0 not found")
}

func TestTaxonomyErrorsMatchWhenWrapped(t *testing.T) {
	wrapped := fmt.Errorf("%w: eth0", ErrHandlerAbsent)
	assert.True(t, errors.Is(wrapped, ErrHandlerAbsent))
	assert.False(t, errors.Is(wrapped, ErrTransport))
}
