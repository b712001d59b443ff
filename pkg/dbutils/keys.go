package dbutils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// KeyDelimiter separates the parts of a composed key. None of the inputs
// (tenant, product, entityID hostnames) are expected to contain it in a way
// that produces ambiguous keys, since composed keys are always digested
// before use.
const KeyDelimiter = ":"

// Index names for the secondary indexes maintained on connection records.
const (
	IndexNameEntityID      = "entityID"
	IndexNameTenantProduct = "tenantProduct"
)

// KeyFromParts joins the given parts into a namespaced key.
func KeyFromParts(parts ...string) string {
	return strings.Join(parts, KeyDelimiter)
}

// KeyDigest returns the hex-encoded SHA-256 digest of the given key. The
// digest is stable across calls and process restarts.
func KeyDigest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
