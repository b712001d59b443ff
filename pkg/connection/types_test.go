package connection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLListFromArray(t *testing.T) {
	var l URLList
	require.NoError(t, json.Unmarshal([]byte(`["http://a.example.com","http://b.example.com"]`), &l))
	assert.Equal(t, URLList{"http://a.example.com", "http://b.example.com"}, l)
}

func TestURLListFromEncodedString(t *testing.T) {
	var l URLList
	require.NoError(t, json.Unmarshal([]byte(`"[\"http://a.example.com\"]"`), &l))
	assert.Equal(t, URLList{"http://a.example.com"}, l)
}

func TestURLListEmptyString(t *testing.T) {
	var l URLList
	require.NoError(t, json.Unmarshal([]byte(`""`), &l))
	assert.Empty(t, l)
}

func TestURLListRejectsGarbage(t *testing.T) {
	var l URLList
	assert.Error(t, json.Unmarshal([]byte(`"not json"`), &l))
	assert.Error(t, json.Unmarshal([]byte(`42`), &l))
}

func TestConnectionJSONOmitsEmptyVariant(t *testing.T) {
	raw, err := json.Marshal(&Connection{Type: ConnectionTypeOIDC, Tenant: "t", Product: "p"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "idpMetadata")
	assert.NotContains(t, string(raw), "certs")
}
