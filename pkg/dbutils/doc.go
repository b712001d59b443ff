// Package dbutils provides key derivation helpers shared by the connection
// store and the connection controller.
//
// Storage keys are composed from identifying fields with KeyFromParts and
// reduced to fixed-length identifiers with KeyDigest. Because the digest is
// deterministic, submitting the same (tenant, product, entityID) combination
// always resolves to the same clientID, which is what makes connection
// creation idempotent.
package dbutils
