package dbutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyFromParts(t *testing.T) {
	assert.Equal(t, "acme.com:demo", KeyFromParts("acme.com", "demo"))
	assert.Equal(t, "acme.com:demo:https://idp.example.com", KeyFromParts("acme.com", "demo", "https://idp.example.com"))
	assert.Equal(t, "", KeyFromParts())
}

func TestKeyDigestDeterministic(t *testing.T) {
	key := KeyFromParts("tenant.example.com", "crm", "https://accounts.google.com/o/saml2")

	first := KeyDigest(key)
	second := KeyDigest(key)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestKeyDigestDistinctInputs(t *testing.T) {
	a := KeyDigest(KeyFromParts("tenant-a", "crm"))
	b := KeyDigest(KeyFromParts("tenant-b", "crm"))

	assert.NotEqual(t, a, b)
}
