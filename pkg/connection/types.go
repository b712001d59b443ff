package connection

import (
	"encoding/json"
	"fmt"

	"github.com/fedbridge/fedbridge/pkg/certs"
	"github.com/fedbridge/fedbridge/pkg/saml"
)

// ConnectionType discriminates the two connection variants.
type ConnectionType string

const (
	// ConnectionTypeSAML marks a connection backed by a SAML identity provider.
	ConnectionTypeSAML ConnectionType = "saml"
	// ConnectionTypeOIDC marks a connection backed by an OpenID Connect provider.
	ConnectionTypeOIDC ConnectionType = "oidc"
)

// OIDCProviderInfo holds the upstream OpenID Connect provider settings for an
// OIDC connection. Exactly one of DiscoveryURL and Issuer is expected; when
// both are given, DiscoveryURL wins.
type OIDCProviderInfo struct {
	DiscoveryURL string `json:"discoveryUrl,omitempty"`
	Issuer       string `json:"issuer,omitempty"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// Connection is a stored identity-provider connection. The Type field tells
// which of the variant payloads (IdPMetadata for SAML, OIDCProvider for OIDC)
// is populated; the rest of the fields are common to both.
type Connection struct {
	Type               ConnectionType    `json:"type"`
	Tenant             string            `json:"tenant"`
	Product            string            `json:"product"`
	Name               string            `json:"name,omitempty"`
	Description        string            `json:"description,omitempty"`
	DefaultRedirectURL string            `json:"defaultRedirectUrl"`
	RedirectURL        []string          `json:"redirectUrl"`
	ClientID           string            `json:"clientID"`
	ClientSecret       string            `json:"clientSecret"`
	ForceAuthn         bool              `json:"forceAuthn,omitempty"`
	IdPMetadata        *saml.IdPMetadata `json:"idpMetadata,omitempty"`
	OIDCProvider       *OIDCProviderInfo `json:"oidcProvider,omitempty"`
	Certs              *certs.KeyPair    `json:"certs,omitempty"`
}

// URLList is a list of allowed redirect URLs. API clients may send it either
// as a JSON array or as a string holding a JSON-encoded array, so both forms
// unmarshal to the same slice.
type URLList []string

func (l *URLList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("redirectUrl must be an array of URLs or a JSON-encoded string")
	}
	if s == "" {
		*l = nil
		return nil
	}
	var parsed []string
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return fmt.Errorf("redirectUrl string is not a JSON array: %w", err)
	}
	*l = parsed
	return nil
}

// CreateSAMLConnectionParams carries the request body for creating a SAML
// connection. Exactly one of RawMetadata and EncodedRawMetadata must be set;
// RawMetadata wins when both are present.
type CreateSAMLConnectionParams struct {
	Tenant             string  `json:"tenant"`
	Product            string  `json:"product"`
	Name               string  `json:"name,omitempty"`
	Description        string  `json:"description,omitempty"`
	DefaultRedirectURL string  `json:"defaultRedirectUrl"`
	RedirectURL        URLList `json:"redirectUrl"`
	RawMetadata        string  `json:"rawMetadata,omitempty"`
	EncodedRawMetadata string  `json:"encodedRawMetadata,omitempty"`
	ForceAuthn         bool    `json:"forceAuthn,omitempty"`
}

// CreateOIDCConnectionParams carries the request body for creating an OIDC
// connection.
type CreateOIDCConnectionParams struct {
	Tenant             string  `json:"tenant"`
	Product            string  `json:"product"`
	Name               string  `json:"name,omitempty"`
	Description        string  `json:"description,omitempty"`
	DefaultRedirectURL string  `json:"defaultRedirectUrl"`
	RedirectURL        URLList `json:"redirectUrl"`
	OIDCDiscoveryURL   string  `json:"oidcDiscoveryUrl,omitempty"`
	OIDCIssuer         string  `json:"oidcIssuer,omitempty"`
	OIDCClientID       string  `json:"oidcClientId,omitempty"`
	OIDCClientSecret   string  `json:"oidcClientSecret,omitempty"`
	ForceAuthn         bool    `json:"forceAuthn,omitempty"`
}

// UpdateSAMLConnectionParams carries a partial update for a SAML connection.
// ClientID identifies the record and ClientSecret must match the stored
// secret. Pointer fields distinguish "absent" from "set to zero value";
// string and slice fields are merged only when non-empty.
type UpdateSAMLConnectionParams struct {
	ClientID           string  `json:"clientID"`
	ClientSecret       string  `json:"clientSecret"`
	Tenant             string  `json:"tenant,omitempty"`
	Product            string  `json:"product,omitempty"`
	Name               *string `json:"name,omitempty"`
	Description        *string `json:"description,omitempty"`
	DefaultRedirectURL string  `json:"defaultRedirectUrl,omitempty"`
	RedirectURL        URLList `json:"redirectUrl,omitempty"`
	RawMetadata        string  `json:"rawMetadata,omitempty"`
	EncodedRawMetadata string  `json:"encodedRawMetadata,omitempty"`
	ForceAuthn         *bool   `json:"forceAuthn,omitempty"`
}

// UpdateOIDCConnectionParams carries a partial update for an OIDC connection.
type UpdateOIDCConnectionParams struct {
	ClientID           string  `json:"clientID"`
	ClientSecret       string  `json:"clientSecret"`
	Tenant             string  `json:"tenant,omitempty"`
	Product            string  `json:"product,omitempty"`
	Name               *string `json:"name,omitempty"`
	Description        *string `json:"description,omitempty"`
	DefaultRedirectURL string  `json:"defaultRedirectUrl,omitempty"`
	RedirectURL        URLList `json:"redirectUrl,omitempty"`
	OIDCDiscoveryURL   string  `json:"oidcDiscoveryUrl,omitempty"`
	OIDCIssuer         string  `json:"oidcIssuer,omitempty"`
	OIDCClientID       string  `json:"oidcClientId,omitempty"`
	OIDCClientSecret   string  `json:"oidcClientSecret,omitempty"`
	ForceAuthn         *bool   `json:"forceAuthn,omitempty"`
}

// GetConnectionsParams selects connections either by clientID or by the
// tenant/product pair.
type GetConnectionsParams struct {
	ClientID string `json:"clientID,omitempty"`
	Tenant   string `json:"tenant,omitempty"`
	Product  string `json:"product,omitempty"`
}

// DeleteConnectionsParams selects connections for deletion, either by the
// clientID/clientSecret pair or by tenant/product.
type DeleteConnectionsParams struct {
	ClientID     string `json:"clientID,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
	Tenant       string `json:"tenant,omitempty"`
	Product      string `json:"product,omitempty"`
}

// ConfigParams carries the request body of the legacy single-IdP config API.
// Only rawMetadata is accepted; the modern connection API supersedes it.
type ConfigParams struct {
	Tenant             string  `json:"tenant"`
	Product            string  `json:"product"`
	Name               string  `json:"name,omitempty"`
	Description        string  `json:"description,omitempty"`
	DefaultRedirectURL string  `json:"defaultRedirectUrl"`
	RedirectURL        URLList `json:"redirectUrl"`
	RawMetadata        string  `json:"rawMetadata,omitempty"`
}

// ConfigResponse is the legacy create response, exposing the minted
// credentials in snake_case as the old surface did.
type ConfigResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Provider     string `json:"provider"`
}

// GetConfigResponse is the legacy read response. An absent connection yields
// the zero value rather than an error.
type GetConfigResponse struct {
	Provider string `json:"provider,omitempty"`
}
