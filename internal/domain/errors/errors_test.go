package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindErrors_MatchTheirKind(t *testing.T) {
	assert.ErrorIs(t, ErrUnsupportedBank, ErrValidation)
	assert.ErrorIs(t, ErrInvalidBaseHash, ErrValidation)
	assert.ErrorIs(t, ErrAmountOutOfRange, ErrValidation)
	assert.ErrorIs(t, ErrRequestNotPending, ErrConflict)
	assert.ErrorIs(t, ErrPaymentProcessed, ErrConflict)
	assert.ErrorIs(t, ErrBankNotConfigured, ErrConfiguration)

	assert.NotErrorIs(t, ErrUnsupportedBank, ErrConflict)
	assert.NotErrorIs(t, ErrUnsupportedBank, ErrInvalidBaseHash)

	wrapped := fmt.Errorf("build link: %w", ErrUnsupportedBank)
	assert.ErrorIs(t, wrapped, ErrUnsupportedBank)
	assert.ErrorIs(t, wrapped, ErrValidation)
}

func TestConstructors(t *testing.T) {
	assert.ErrorIs(t, Validation("amount %s", "-1"), ErrValidation)
	assert.ErrorIs(t, Conflict("request %d", 1), ErrConflict)
	assert.ErrorIs(t, Configuration("bank %s", "x"), ErrConfiguration)

	assert.Nil(t, Transient(nil))
	base := stderrors.New("dial tcp: refused")
	tr := Transient(base)
	assert.True(t, IsTransient(tr))
	assert.ErrorIs(t, tr, base)
	assert.Equal(t, tr, Transient(tr))
	assert.False(t, IsTransient(base))
}

func TestFromError_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{ErrNotFound, http.StatusNotFound, CodeNotFound},
		{ErrAmountOutOfRange, http.StatusBadRequest, CodeValidation},
		{ErrRequestNotPending, http.StatusConflict, CodeConflict},
		{ErrBankNotConfigured, http.StatusUnprocessableEntity, CodeConfiguration},
		{Transient(stderrors.New("timeout")), http.StatusServiceUnavailable, CodeUnavailable},
		{stderrors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tc := range cases {
		appErr := FromError(tc.err)
		assert.Equal(t, tc.status, appErr.Status, tc.err.Error())
		assert.Equal(t, tc.code, appErr.Code, tc.err.Error())
	}

	nf := NotFound("missing")
	assert.Same(t, nf, FromError(nf))
	assert.Equal(t, ErrNotFound.Error(), nf.Error())
	assert.ErrorIs(t, nf, ErrNotFound)
}

func TestAppError_MessageWithoutCause(t *testing.T) {
	err := NewAppError(http.StatusTeapot, "TEAPOT", "short and stout", nil)
	assert.Equal(t, "short and stout", err.Error())
	assert.Equal(t, http.StatusBadRequest, BadRequest("x").Status)
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("x").Status)
	assert.Equal(t, http.StatusForbidden, Forbidden("x").Status)
}
