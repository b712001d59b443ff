package saml

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCert = "MIICizCCAfQCCQCY8tKaMc0BMjANBgkqhkiG9w0BAQUFADCBiTELMAkGA1UEBhMC" +
	"Tk8xEjAQBgNVBAgTCVRyb25kaGVpbTEQMA4GA1UEChMHVU5JTkVUVDEOMAwGA1UE"

func metadataXML(entityID, redirectURL, postURL string) string {
	doc := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<md:EntityDescriptor xmlns:md="urn:oasis:names:tc:SAML:2.0:metadata"`
	if entityID != "" {
		doc += fmt.Sprintf(" entityID=%q", entityID)
	}
	doc += `><md:IDPSSODescriptor protocolSupportEnumeration="urn:oasis:names:tc:SAML:2.0:protocol">` +
		`<md:KeyDescriptor use="signing">` +
		`<ds:KeyInfo xmlns:ds="http://www.w3.org/2000/09/xmldsig#">` +
		`<ds:X509Data><ds:X509Certificate>` + testCert + `</ds:X509Certificate></ds:X509Data>` +
		`</ds:KeyInfo></md:KeyDescriptor>`
	if redirectURL != "" {
		doc += `<md:SingleSignOnService Binding="urn:oasis:names:tc:SAML:2.0:bindings:HTTP-Redirect" Location="` + redirectURL + `"/>`
	}
	if postURL != "" {
		doc += `<md:SingleSignOnService Binding="urn:oasis:names:tc:SAML:2.0:bindings:HTTP-POST" Location="` + postURL + `"/>`
	}
	doc += `</md:IDPSSODescriptor></md:EntityDescriptor>`
	return doc
}

func TestParseMetadata(t *testing.T) {
	raw := metadataXML(
		"https://accounts.google.com/o/saml2?idpid=C01abc",
		"https://accounts.google.com/o/saml2/idp?idpid=C01abc",
		"https://accounts.google.com/o/saml2/idp/post?idpid=C01abc",
	)

	metadata, err := ParseMetadata(raw)
	require.NoError(t, err)

	assert.Equal(t, "https://accounts.google.com/o/saml2?idpid=C01abc", metadata.EntityID)
	assert.Equal(t, "https://accounts.google.com/o/saml2/idp?idpid=C01abc", metadata.SSO.RedirectURL)
	assert.Equal(t, "https://accounts.google.com/o/saml2/idp/post?idpid=C01abc", metadata.SSO.PostURL)
	assert.Equal(t, "accounts.google.com", metadata.Provider)
	require.Len(t, metadata.SigningCerts, 1)
	assert.Equal(t, testCert, metadata.SigningCerts[0])
}

func TestParseMetadataMalformedXML(t *testing.T) {
	_, err := ParseMetadata("not a valid XML")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrEntityIDMissing)
}

func TestParseMetadataMissingEntityID(t *testing.T) {
	raw := metadataXML("", "https://idp.example.com/sso", "")

	_, err := ParseMetadata(raw)
	require.ErrorIs(t, err, ErrEntityIDMissing)
	assert.Equal(t, "Couldn't parse EntityID from SAML metadata", err.Error())
}

func TestParseMetadataPostBindingOnly(t *testing.T) {
	raw := metadataXML("https://idp.example.com/saml", "", "https://idp.example.com/sso/post")

	metadata, err := ParseMetadata(raw)
	require.NoError(t, err)

	assert.Empty(t, metadata.SSO.RedirectURL)
	assert.Equal(t, "https://idp.example.com/sso/post", metadata.SSO.PostURL)
}

func TestProviderInference(t *testing.T) {
	tests := []struct {
		name        string
		entityID    string
		redirectURL string
		want        string
	}{
		{"entityID hostname", "https://accounts.google.com/o/saml2", "https://other.example.com/sso", "accounts.google.com"},
		{"www stripped", "https://www.example.com/idp", "", "example.com"},
		{"fallback to SSO URL", "urn:mace:example:idp", "https://idp.example.org/sso", "idp.example.org"},
		{"nothing parseable", "urn:mace:example:idp", "", UnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := metadataXML(tt.entityID, tt.redirectURL, "")
			metadata, err := ParseMetadata(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, metadata.Provider)
		})
	}
}

func TestDecodeRawMetadata(t *testing.T) {
	raw := metadataXML("https://idp.example.com", "https://idp.example.com/sso", "")
	encoded := base64.StdEncoding.EncodeToString([]byte(raw))

	decoded, err := DecodeRawMetadata("", encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)

	// Raw wins when both are present.
	decoded, err = DecodeRawMetadata("raw wins", encoded)
	require.NoError(t, err)
	assert.Equal(t, "raw wins", decoded)

	_, err = DecodeRawMetadata("", "%%% not base64 %%%")
	assert.Error(t, err)
}
