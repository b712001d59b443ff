// Package certs generates the per-connection signing keypair used on the
// service-provider side of a SAML exchange.
//
// A keypair is generated once when a connection is created and kept stable
// across updates, since regenerating it would invalidate SP metadata already
// distributed to the identity provider.
package certs
