package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteSuccess(rec, map[string]string{"hello": "world"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Nil(t, env.Error)
	assert.Equal(t, map[string]interface{}{"hello": "world"}, env.Data)
}

func TestWriteErrorMessage(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteErrorMessage(rec, http.StatusBadRequest, "Please provide tenant")

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Nil(t, env.Data)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Please provide tenant", env.Error.Message)
	assert.Equal(t, http.StatusBadRequest, env.Error.StatusCode)

	// data must be an explicit null, not omitted
	assert.Contains(t, rec.Body.String(), `"data":null`)
}

func TestParseJSONOrError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))

	var dest map[string]interface{}
	ok := ParseJSONOrError(rec, req, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
