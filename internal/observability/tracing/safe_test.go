package tracing

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributes(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("authorization", "Bearer x"),
		attribute.String("http.route", strings.Repeat("a", 300)),
		attribute.Int("http.status_code", 200),
	)
	require.Len(t, attrs, 2)
	assert.Len(t, attrs[0].Value.AsString(), maxAttributeLength)
	assert.Equal(t, int64(200), attrs[1].Value.AsInt64())
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.EqualError(t, SafeError(errors.New("db down\nstack...")), "db down")
}
