package saml

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"

	saml2 "github.com/russellhaering/gosaml2"
	"github.com/russellhaering/gosaml2/types"
)

// UnknownProvider is the provider name used when neither the entityID nor
// the SSO endpoint yields a hostname.
const UnknownProvider = "Unknown"

// ErrEntityIDMissing is returned when the metadata document is well-formed
// XML but carries no entityID attribute on its root descriptor.
var ErrEntityIDMissing = errors.New("Couldn't parse EntityID from SAML metadata")

// SSOEndpoints holds the IdP's single sign-on binding endpoints.
type SSOEndpoints struct {
	RedirectURL string `json:"redirectUrl,omitempty"`
	PostURL     string `json:"postUrl,omitempty"`
}

// IdPMetadata is the structured form of an IdP metadata document.
type IdPMetadata struct {
	EntityID     string       `json:"entityID"`
	SSO          SSOEndpoints `json:"sso"`
	SigningCerts []string     `json:"signingCerts,omitempty"`
	Provider     string       `json:"provider"`
}

// DecodeRawMetadata returns the metadata XML from either the raw or the
// base64-encoded form, preferring raw when both are present.
func DecodeRawMetadata(rawMetadata, encodedRawMetadata string) (string, error) {
	if rawMetadata != "" {
		return rawMetadata, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(encodedRawMetadata)
	if err != nil {
		return "", fmt.Errorf("invalid encodedRawMetadata: %v", err)
	}
	return string(decoded), nil
}

// ParseMetadata parses a raw IdP metadata document.
//
// Malformed XML surfaces the underlying parser error. A document without an
// entityID fails with ErrEntityIDMissing, which callers present as a
// distinct user-facing error rather than a generic parse failure.
func ParseMetadata(rawMetadata string) (*IdPMetadata, error) {
	descriptor := &types.EntityDescriptor{}
	if err := xml.Unmarshal([]byte(rawMetadata), descriptor); err != nil {
		return nil, err
	}

	if descriptor.EntityID == "" {
		return nil, ErrEntityIDMissing
	}

	metadata := &IdPMetadata{
		EntityID: descriptor.EntityID,
	}

	if idp := descriptor.IDPSSODescriptor; idp != nil {
		for _, svc := range idp.SingleSignOnServices {
			switch svc.Binding {
			case saml2.BindingHttpRedirect:
				if metadata.SSO.RedirectURL == "" {
					metadata.SSO.RedirectURL = svc.Location
				}
			case saml2.BindingHttpPost:
				if metadata.SSO.PostURL == "" {
					metadata.SSO.PostURL = svc.Location
				}
			}
		}

		for _, kd := range idp.KeyDescriptors {
			// Descriptors without a use attribute serve both signing
			// and encryption.
			if kd.Use != "" && kd.Use != "signing" {
				continue
			}
			for _, cert := range kd.KeyInfo.X509Data.X509Certificates {
				data := strings.Join(strings.Fields(cert.Data), "")
				if data != "" {
					metadata.SigningCerts = append(metadata.SigningCerts, data)
				}
			}
		}
	}

	metadata.Provider = inferProvider(metadata)

	return metadata, nil
}

// inferProvider derives a display name: the entityID hostname, falling back
// to the SSO endpoint hostname, falling back to UnknownProvider.
func inferProvider(metadata *IdPMetadata) string {
	if host := extractHostName(metadata.EntityID); host != "" {
		return host
	}

	endpoint := metadata.SSO.RedirectURL
	if endpoint == "" {
		endpoint = metadata.SSO.PostURL
	}
	if host := extractHostName(endpoint); host != "" {
		return host
	}

	return UnknownProvider
}

// extractHostName returns the hostname of rawURL with a leading "www."
// stripped, or "" when rawURL is not a URL with a hostname.
func extractHostName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if host == "" {
		return ""
	}
	return strings.TrimPrefix(host, "www.")
}
