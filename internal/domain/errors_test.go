package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrStoreWrapsOnce(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrStore("sales aggregate", cause)

	assert.True(t, IsStore(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "sales aggregate: connection refused", err.Error())

	wrapped := fmt.Errorf("run: %w", err)
	assert.Same(t, wrapped, ErrStore("other", wrapped))
	assert.Nil(t, ErrStore("noop", nil))
}

func TestClassification(t *testing.T) {
	assert.True(t, IsValidation(fmt.Errorf("x: %w", ErrValidation("bad %s", "input"))))
	assert.True(t, IsAuth(ErrAuth("expired")))
	assert.True(t, IsNotFound(ErrNotFound("product %s", "42")))
	assert.False(t, IsStore(ErrValidation("nope")))
	assert.Equal(t, "product 42", ErrNotFound("product %s", "42").Error())
}
