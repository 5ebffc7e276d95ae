package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = New(CodeInsufficientFunds, "insufficient funds")

func TestIs_MatchesSentinelAfterDetails(t *testing.T) {
	err := fmt.Errorf("apply delta: %w", errSentinel.WithDetails(map[string]string{"available": "1.00"}))

	assert.True(t, errors.Is(err, errSentinel))
	assert.Nil(t, errSentinel.Details(), "sentinel must not be mutated")

	typed := As(err)
	require.NotNil(t, typed)
	assert.Equal(t, CodeInsufficientFunds, typed.Code())
	assert.Equal(t, map[string]string{"available": "1.00"}, typed.Details())
}

func TestIs_DifferentMessageDoesNotMatch(t *testing.T) {
	other := New(CodeInsufficientFunds, "something else")
	assert.False(t, errors.Is(other, errSentinel))
	assert.True(t, HasCode(other, CodeInsufficientFunds))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(CodeInternal, cause, "load wallet")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestMetadataFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, MetadataFor(CodeInsufficientFunds).HTTPStatus)
	assert.Equal(t, http.StatusNotFound, MetadataFor(CodeNotFound).HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, MetadataFor(Code("bogus")).HTTPStatus)
}

func TestAs_Nil(t *testing.T) {
	assert.Nil(t, As(nil))
	assert.Nil(t, As(errors.New("plain")))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
}
