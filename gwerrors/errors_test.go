package gwerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHTTPStatus(t *testing.T) {
	assert.Equal(t, 400, KindInvalidRequest.HTTPStatus())
	assert.Equal(t, 502, KindUpstream.HTTPStatus())
	assert.Equal(t, 200, KindUpstreamSafety.HTTPStatus())
	assert.Equal(t, 500, KindTranslation.HTTPStatus())
	assert.Equal(t, 500, KindInternal.HTTPStatus())
}

func TestInvalidRequestFormatting(t *testing.T) {
	err := InvalidRequest("unknown model %q", "gpt-bogus")
	assert.Equal(t, KindInvalidRequest, err.Kind)
	assert.Contains(t, err.Error(), "unknown model")
	assert.Equal(t, 400, err.HTTPStatus())
}

func TestUpstreamWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Upstream(cause, "endpoint %s failed", "primary")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestAsUnwrapsGatewayError(t *testing.T) {
	inner := New(KindUpstreamSafety, "blocked")
	wrapped := Wrap(KindUpstream, "relay failed", inner)

	found, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindUpstream, found.Kind)

	found2, ok2 := As(inner)
	assert.True(t, ok2)
	assert.Equal(t, KindUpstreamSafety, found2.Kind)

	_, ok3 := As(errors.New("plain"))
	assert.False(t, ok3)
}
