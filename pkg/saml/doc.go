// Package saml parses SAML identity-provider metadata documents into the
// structured record stored on a connection.
//
// Parsing extracts the entityID, the SSO binding endpoints (HTTP-Redirect
// preferred, HTTP-POST as fallback), any signing certificates, and infers a
// human-readable provider name from the entityID or SSO endpoint hostname.
// The provider name is the only naming heuristic operators get when browsing
// configured connections, so the fallback chain is fixed.
package saml
