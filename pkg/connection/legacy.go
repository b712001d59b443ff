package connection

import (
	"context"
	"errors"

	"github.com/fedbridge/fedbridge/pkg/dbutils"
	"github.com/fedbridge/fedbridge/pkg/saml"
	"github.com/fedbridge/fedbridge/pkg/store"
)

// Legacy single-IdP config surface. It predates the typed connection API
// and stays wire-compatible for old deployments: SAML only, inline metadata
// only, and the minted credentials come back in snake_case. The legacy
// surface never checked redirect URLs for syntax, so this one does not
// either.

// Config registers a SAML connection through the legacy surface.
func (c *Controller) Config(ctx context.Context, params *ConfigParams) (resp *ConfigResponse, err error) {
	defer func() { c.observe("config", err) }()

	if params.RawMetadata == "" {
		return nil, newValidationError("Please provide rawMetadata")
	}
	if params.DefaultRedirectURL == "" {
		return nil, newValidationError("Please provide a defaultRedirectUrl")
	}
	if len(params.RedirectURL) == 0 {
		return nil, newValidationError("Please provide redirectUrl")
	}
	if params.Tenant == "" {
		return nil, newValidationError("Please provide tenant")
	}
	if params.Product == "" {
		return nil, newValidationError("Please provide product")
	}

	metadata, err := saml.ParseMetadata(params.RawMetadata)
	if err != nil {
		return nil, newValidationError(err.Error())
	}

	clientID := dbutils.KeyDigest(dbutils.KeyFromParts(params.Tenant, params.Product, metadata.EntityID))

	conn := &Connection{
		Type:               ConnectionTypeSAML,
		Tenant:             params.Tenant,
		Product:            params.Product,
		Name:               params.Name,
		Description:        params.Description,
		DefaultRedirectURL: params.DefaultRedirectURL,
		RedirectURL:        params.RedirectURL,
		ClientID:           clientID,
		IdPMetadata:        metadata,
	}

	existing, err := c.getByClientID(ctx, clientID)
	switch {
	case err == nil:
		conn.ClientSecret = existing.ClientSecret
		conn.Certs = existing.Certs
	case errors.Is(err, store.ErrNotFound):
		secret, err := generateClientSecret()
		if err != nil {
			return nil, err
		}
		keyPair, err := c.certMgr.Generate()
		if err != nil {
			return nil, err
		}
		conn.ClientSecret = secret
		conn.Certs = keyPair
	default:
		return nil, err
	}

	if err := c.put(ctx, conn); err != nil {
		return nil, err
	}

	return &ConfigResponse{
		ClientID:     conn.ClientID,
		ClientSecret: conn.ClientSecret,
		Provider:     metadata.Provider,
	}, nil
}

// GetConfig reads a connection through the legacy surface. Absent records
// yield a zero response, never an error.
func (c *Controller) GetConfig(ctx context.Context, params *GetConnectionsParams) (resp *GetConfigResponse, err error) {
	defer func() { c.observe("get_config", err) }()

	if params.ClientID != "" {
		conn, err := c.getByClientID(ctx, params.ClientID)
		if errors.Is(err, store.ErrNotFound) {
			return &GetConfigResponse{}, nil
		}
		if err != nil {
			return nil, err
		}
		return &GetConfigResponse{Provider: providerOf(conn)}, nil
	}

	if params.Tenant != "" && params.Product != "" {
		conns, err := c.getByTenantProduct(ctx, params.Tenant, params.Product)
		if err != nil {
			return nil, err
		}
		if len(conns) == 0 {
			return &GetConfigResponse{}, nil
		}
		return &GetConfigResponse{Provider: providerOf(conns[0])}, nil
	}

	return nil, newValidationError("Please provide `clientID` or `tenant` and `product`.")
}

func providerOf(conn *Connection) string {
	if conn.IdPMetadata != nil {
		return conn.IdPMetadata.Provider
	}
	return ""
}

// UpdateConfig updates a connection through the legacy surface.
func (c *Controller) UpdateConfig(ctx context.Context, params *UpdateSAMLConnectionParams) error {
	_, err := c.UpdateSAMLConnection(ctx, params)
	return err
}

// DeleteConfig deletes a connection through the legacy surface.
func (c *Controller) DeleteConfig(ctx context.Context, params *DeleteConnectionsParams) error {
	return c.DeleteConnections(ctx, params)
}
