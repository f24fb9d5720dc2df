package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := Validation("price must be at least %g", 1.0)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindValidation, kind)
	assert.Equal(t, "price must be at least 1", err.Error())

	_, ok = KindOf(errors.New("disk on fire"))
	assert.False(t, ok)

	_, ok = KindOf(nil)
	assert.False(t, ok)
}

func TestKindOfWrapped(t *testing.T) {
	inner := NotFound("listing not found")
	wrapped := fmt.Errorf("placing bid: %w", inner)

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindNotFound, kind)
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(wrapped, KindConflict))
}

func TestIsMatchesByKind(t *testing.T) {
	a := Conflict("bid race lost")
	b := Conflict("already reviewed")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, Forbidden("nope")))
	assert.False(t, errors.Is(errors.New("plain"), a))
}

func TestConstructors(t *testing.T) {
	cases := []struct {
		err  *Error
		kind Kind
	}{
		{Validation("v"), KindValidation},
		{Conflict("c"), KindConflict},
		{Forbidden("f"), KindForbidden},
		{NotFound("n"), KindNotFound},
		{Precondition("p"), KindPrecondition},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, tc.err.Kind)
		assert.True(t, IsKind(tc.err, tc.kind))
	}
}
