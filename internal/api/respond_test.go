package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func TestEncodeEnvelope_SuccessList(t *testing.T) {
	body, err := encodeEnvelope(http.StatusOK, []string{"a", "b", "c"}, "")
	require.NoError(t, err)

	env := decodeEnvelope(t, body)
	assert.Equal(t, "success", env["status"])
	assert.Equal(t, []any{"a", "b", "c"}, env["data"])
	assert.Nil(t, env["error"])
	assert.Equal(t, float64(3), env["count"])
}

func TestEncodeEnvelope_SuccessScalar(t *testing.T) {
	body, err := encodeEnvelope(http.StatusOK, map[string]string{"message": "ok"}, "")
	require.NoError(t, err)

	env := decodeEnvelope(t, body)
	assert.Equal(t, "success", env["status"])
	assert.Equal(t, float64(1), env["count"])
}

func TestEncodeEnvelope_EmptyList(t *testing.T) {
	body, err := encodeEnvelope(http.StatusOK, []int{}, "")
	require.NoError(t, err)

	env := decodeEnvelope(t, body)
	assert.Equal(t, "success", env["status"])
	assert.Equal(t, []any{}, env["data"])
	assert.Equal(t, float64(0), env["count"])
}

func TestEncodeEnvelope_Error(t *testing.T) {
	body, err := encodeEnvelope(http.StatusNotFound, nil, "Product 999 not found")
	require.NoError(t, err)

	env := decodeEnvelope(t, body)
	assert.Equal(t, "error", env["status"])
	assert.Nil(t, env["data"])
	assert.Equal(t, "Product 999 not found", env["error"])
	assert.Equal(t, float64(0), env["count"])
}

func TestEncodeEnvelope_ErrorIgnoresData(t *testing.T) {
	// Non-200 never carries data, even if a payload slips through.
	body, err := encodeEnvelope(http.StatusBadRequest, []string{"x"}, "session_id is required")
	require.NoError(t, err)

	env := decodeEnvelope(t, body)
	assert.Nil(t, env["data"])
	assert.Equal(t, float64(0), env["count"])
}
