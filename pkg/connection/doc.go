// Package connection implements the connection-management core of the
// identity broker: registering, updating, looking up and removing SAML and
// OIDC identity-provider connections scoped by tenant and product.
//
// # Records
//
// A connection pairs one tenant/product scope with one external identity
// provider and carries the clientID/clientSecret credentials that later
// drive the federated login flow. SAML connections derive their clientID
// deterministically from (tenant, product, entityID), so re-submitting the
// same connection is idempotent: the same clientID comes back and the
// clientSecret generated at first creation is preserved verbatim.
//
// Records are persisted through a store.Store under the clientID as primary
// key, reachable through two non-unique secondary indexes: entityID (SAML
// only) and tenantProduct (both variants).
//
// # Concurrency
//
// Create is a read-then-write sequence so an existing clientSecret can be
// preserved. Two concurrent creates for the same derived clientID can both
// observe "absent" and generate fresh secrets, with the later write winning.
// Connections are expected to be configured by a single writer at bootstrap
// time; the race is accepted rather than hidden behind locking the store
// contract does not promise.
package connection
