package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"new", New(CodeNotFound, "package not found"), "[NOT_FOUND] package not found"},
		{"wrap", Wrap(errors.New("original error"), CodeInternal, "internal failure"), "[INTERNAL_ERROR] internal failure: original error"},
		{
			"context sorted",
			AddContext(AddContext(New(CodeNotFound, "symbol not found"), CtxSymbol, "a.B"), CtxPath, "a/B.java"),
			"[NOT_FOUND] symbol not found {path=a/B.java symbol=a.B}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsCode(t *testing.T) {
	err := New(CodeValidationError, "invalid input")
	assert.True(t, IsCode(err, CodeValidationError))
	assert.False(t, IsCode(err, CodeNotFound))
	assert.True(t, IsCode(fmt.Errorf("outer: %w", err), CodeValidationError))
	assert.False(t, IsCode(errors.New("plain"), CodeInternal))
}

func TestAddContext_ForeignErrorBecomesInternal(t *testing.T) {
	cause := errors.New("boom")
	err := AddContext(cause, CtxPath, "a.java")

	assert.True(t, IsCode(err, CodeInternal))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "path=a.java")
}

func TestRecover_InvariantBecomesError(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		Invariantf("no descriptor for %s", "X")
		return nil
	}
	err := run()
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeInvariant))
	assert.Contains(t, err.Error(), "no descriptor for X")
}

func TestRecover_ForeignPanicPropagates(t *testing.T) {
	assert.PanicsWithValue(t, "plain", func() {
		var err error
		func() {
			defer Recover(&err)
			panic("plain")
		}()
	})
}

func TestAsInvariant(t *testing.T) {
	_, ok := AsInvariant("text")
	assert.False(t, ok, "string panics are not invariants")
	_, ok = AsInvariant(New(CodeInternal, "x"))
	assert.False(t, ok)
	de, ok := AsInvariant(&DomainError{Code: CodeInvariant, Message: "m"})
	require.True(t, ok)
	assert.Equal(t, "m", de.Message)
}
