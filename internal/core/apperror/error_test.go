package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"configuration", NewConfiguration(CodeDefaultCurrencyMissing, "no default currency"), KindConfiguration},
		{"validation", NewValidationCode(CodeSameLocation, "same location"), KindValidation},
		{"state", NewState(CodeNotInventoried, "not inventoried"), KindState},
		{"not found", NewNotFound("tax", "x"), KindNotFound},
		{"duplicate", NewDuplicate("tax", "taxCode", "VAT"), KindConflict},
		{"foreign", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWrappedAppErrorIsFound(t *testing.T) {
	base := NewState(CodeNotInventoried, "product is not inventoried").
		WithDetail("productId", "p-1")
	wrapped := fmt.Errorf("record increment: %w", base)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeNotInventoried, appErr.Code)
	assert.Equal(t, "p-1", appErr.Details["productId"])
	assert.True(t, HasCode(wrapped, CodeNotInventoried))
	assert.Equal(t, http.StatusUnprocessableEntity, GetHTTPStatus(wrapped))
}

func TestConfigurationIsServerError(t *testing.T) {
	err := NewConfiguration(CodeBaseCurrencyMissing, "no base currency")

	assert.True(t, IsConfiguration(err))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(err))
	assert.False(t, IsNotFound(err))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("plain")))
}
