package connection

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const wellKnownSuffix = "/.well-known/openid-configuration"

// validateDiscoveryURL fetches the discovery document behind discoveryURL
// and verifies it describes a reachable OpenID provider with a matching
// issuer.
func validateDiscoveryURL(ctx context.Context, discoveryURL string) error {
	issuer := strings.TrimSuffix(discoveryURL, wellKnownSuffix)
	if _, err := oidc.NewProvider(ctx, issuer); err != nil {
		return fmt.Errorf("OpenID Provider discovery failed: %v", err)
	}
	return nil
}

// OAuthConfig resolves the provider's endpoints from its discovery document
// and returns the oauth2 client configuration the login layer drives the
// authorization-code flow with.
func (conn *Connection) OAuthConfig(ctx context.Context, redirectURL string) (*oauth2.Config, error) {
	if conn.Type != ConnectionTypeOIDC || conn.OIDCProvider == nil {
		return nil, fmt.Errorf("connection %s is not an OIDC connection", conn.ClientID)
	}

	issuer := conn.OIDCProvider.Issuer
	if issuer == "" {
		issuer = strings.TrimSuffix(conn.OIDCProvider.DiscoveryURL, wellKnownSuffix)
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover OpenID provider %s: %w", issuer, err)
	}

	return &oauth2.Config{
		ClientID:     conn.OIDCProvider.ClientID,
		ClientSecret: conn.OIDCProvider.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  redirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}, nil
}
