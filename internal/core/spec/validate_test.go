package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Structural Validation Tests
// =============================================================================

func TestValidate_AcceptsMinimalSpec(t *testing.T) {
	err := Validate([]byte(relativeMountSpec))
	assert.NoError(t, err)
}

func TestValidate_AcceptsUninterpolatedVariables(t *testing.T) {
	content := `
services:
  web:
    image: nginx:latest
    environment:
      TOKEN: ${SOME_UNSET_VAR}
`
	err := Validate([]byte(content))
	assert.NoError(t, err)
}

func TestValidate_RejectsEmpty(t *testing.T) {
	err := Validate([]byte(" \n"))
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestValidate_RejectsNonMapping(t *testing.T) {
	err := Validate([]byte("- just\n- a\n- list\n"))
	assert.Error(t, err)
}

func TestValidate_RejectsNoServices(t *testing.T) {
	err := Validate([]byte("networks:\n  x: {}\n"))
	assert.Error(t, err)
}
