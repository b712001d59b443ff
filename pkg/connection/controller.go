package connection

import (
	"context"
	"crypto/rand"
	"errors"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fedbridge/fedbridge/pkg/certs"
	"github.com/fedbridge/fedbridge/pkg/dbutils"
	"github.com/fedbridge/fedbridge/pkg/observability"
	"github.com/fedbridge/fedbridge/pkg/saml"
	"github.com/fedbridge/fedbridge/pkg/store"
)

// Options configures a Controller. The zero value is usable: a default
// logger is installed, metrics are skipped and OIDC discovery URLs are not
// probed over the network.
type Options struct {
	// Logger receives structured operation logs. Defaults to an info-level
	// logger on stdout.
	Logger *observability.Logger

	// Metrics, when set, counts connection operations by outcome.
	Metrics *observability.Metrics

	// CertCommonName is the subject common name on generated SP signing
	// certificates. Defaults to "FedBridge".
	CertCommonName string

	// ValidateOIDCDiscovery enables fetching the provider's discovery
	// document during OIDC connection creation to reject dead endpoints
	// early.
	ValidateOIDCDiscovery bool
}

// Controller implements the connection-management API on top of a Store.
type Controller struct {
	store             store.Store
	certMgr           *certs.Manager
	logger            *observability.Logger
	metrics           *observability.Metrics
	validateDiscovery bool
}

// NewController creates a Controller persisting through s.
func NewController(s store.Store, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	commonName := opts.CertCommonName
	if commonName == "" {
		commonName = "FedBridge"
	}
	return &Controller{
		store:             s,
		certMgr:           certs.NewManager(commonName),
		logger:            logger,
		metrics:           opts.Metrics,
		validateDiscovery: opts.ValidateOIDCDiscovery,
	}
}

// generateClientSecret mints a fresh 48-hex-char client secret.
func generateClientSecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate client secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func (c *Controller) observe(op string, err error) {
	if c.metrics != nil {
		c.metrics.ObserveConnectionOp(op, err)
	}
}

// getByClientID loads and decodes one connection. store.ErrNotFound passes
// through untranslated so callers can choose their absent-record behavior.
func (c *Controller) getByClientID(ctx context.Context, clientID string) (*Connection, error) {
	raw, err := c.store.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	var conn Connection
	if err := json.Unmarshal(raw, &conn); err != nil {
		return nil, fmt.Errorf("decode connection %s: %w", clientID, err)
	}
	return &conn, nil
}

func indexesFor(conn *Connection) []store.Index {
	indexes := []store.Index{{
		Name:  dbutils.IndexNameTenantProduct,
		Value: dbutils.KeyFromParts(conn.Tenant, conn.Product),
	}}
	if conn.Type == ConnectionTypeSAML && conn.IdPMetadata != nil {
		indexes = append(indexes, store.Index{
			Name:  dbutils.IndexNameEntityID,
			Value: conn.IdPMetadata.EntityID,
		})
	}
	return indexes
}

func (c *Controller) put(ctx context.Context, conn *Connection) error {
	raw, err := json.Marshal(conn)
	if err != nil {
		return fmt.Errorf("encode connection %s: %w", conn.ClientID, err)
	}
	return c.store.Put(ctx, conn.ClientID, raw, indexesFor(conn)...)
}

// CreateSAMLConnection registers a SAML connection from IdP metadata. The
// clientID is derived from (tenant, product, entityID), so re-creating the
// same connection overwrites the record in place while keeping the
// clientSecret minted at first creation.
func (c *Controller) CreateSAMLConnection(ctx context.Context, params *CreateSAMLConnectionParams) (conn *Connection, err error) {
	defer func() { c.observe("create_saml", err) }()

	if params.RawMetadata == "" && params.EncodedRawMetadata == "" {
		return nil, newValidationError("Please provide rawMetadata or encodedRawMetadata")
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
	if err := validateRedirectURLs(params.RedirectURL, params.DefaultRedirectURL); err != nil {
		return nil, err
	}

	rawMetadata, err := saml.DecodeRawMetadata(params.RawMetadata, params.EncodedRawMetadata)
	if err != nil {
		return nil, newValidationError(err.Error())
	}
	metadata, err := saml.ParseMetadata(rawMetadata)
	if err != nil {
		return nil, newValidationError(err.Error())
	}

	clientID := dbutils.KeyDigest(dbutils.KeyFromParts(params.Tenant, params.Product, metadata.EntityID))

	conn = &Connection{
		Type:               ConnectionTypeSAML,
		Tenant:             params.Tenant,
		Product:            params.Product,
		Name:               params.Name,
		Description:        params.Description,
		DefaultRedirectURL: params.DefaultRedirectURL,
		RedirectURL:        params.RedirectURL,
		ClientID:           clientID,
		ForceAuthn:         params.ForceAuthn,
		IdPMetadata:        metadata,
	}

	existing, err := c.getByClientID(ctx, clientID)
	switch {
	case err == nil:
		// Same scope and IdP seen before: keep the credentials and the
		// signing keypair already handed out.
		conn.ClientSecret = existing.ClientSecret
		conn.Certs = existing.Certs
	case errors.Is(err, store.ErrNotFound):
		secret, err := generateClientSecret()
		if err != nil {
			return nil, err
		}
		keyPair, err := c.certMgr.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate signing keypair: %w", err)
		}
		conn.ClientSecret = secret
		conn.Certs = keyPair
	default:
		return nil, err
	}

	if err := c.put(ctx, conn); err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"tenant":   conn.Tenant,
		"product":  conn.Product,
		"entityID": metadata.EntityID,
		"provider": metadata.Provider,
	}).Info("SAML connection created")

	return conn, nil
}

// CreateOIDCConnection registers an OIDC connection. The clientID is derived
// from (tenant, product, discoveryUrl-or-issuer), giving the same idempotent
// re-create behavior as the SAML variant.
func (c *Controller) CreateOIDCConnection(ctx context.Context, params *CreateOIDCConnectionParams) (conn *Connection, err error) {
	defer func() { c.observe("create_oidc", err) }()

	if params.OIDCDiscoveryURL == "" && params.OIDCIssuer == "" {
		return nil, newValidationError("Please provide the discoveryUrl or issuer for the OpenID Provider")
	}
	if params.OIDCClientID == "" {
		return nil, newValidationError("Please provide the clientId from OpenID Provider")
	}
	if params.OIDCClientSecret == "" {
		return nil, newValidationError("Please provide the clientSecret from OpenID Provider")
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
	if err := validateRedirectURLs(params.RedirectURL, params.DefaultRedirectURL); err != nil {
		return nil, err
	}

	if c.validateDiscovery && params.OIDCDiscoveryURL != "" {
		if err := validateDiscoveryURL(ctx, params.OIDCDiscoveryURL); err != nil {
			return nil, newValidationError(err.Error())
		}
	}

	providerID := params.OIDCDiscoveryURL
	if providerID == "" {
		providerID = params.OIDCIssuer
	}
	clientID := dbutils.KeyDigest(dbutils.KeyFromParts(params.Tenant, params.Product, providerID))

	conn = &Connection{
		Type:               ConnectionTypeOIDC,
		Tenant:             params.Tenant,
		Product:            params.Product,
		Name:               params.Name,
		Description:        params.Description,
		DefaultRedirectURL: params.DefaultRedirectURL,
		RedirectURL:        params.RedirectURL,
		ClientID:           clientID,
		ForceAuthn:         params.ForceAuthn,
		OIDCProvider: &OIDCProviderInfo{
			DiscoveryURL: params.OIDCDiscoveryURL,
			Issuer:       params.OIDCIssuer,
			ClientID:     params.OIDCClientID,
			ClientSecret: params.OIDCClientSecret,
		},
	}

	existing, err := c.getByClientID(ctx, clientID)
	switch {
	case err == nil:
		conn.ClientSecret = existing.ClientSecret
	case errors.Is(err, store.ErrNotFound):
		secret, err := generateClientSecret()
		if err != nil {
			return nil, err
		}
		conn.ClientSecret = secret
	default:
		return nil, err
	}

	if err := c.put(ctx, conn); err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"tenant":   conn.Tenant,
		"product":  conn.Product,
		"provider": providerID,
	}).Info("OIDC connection created")

	return conn, nil
}

// UpdateSAMLConnection applies a partial update to an existing SAML
// connection. The caller must present the stored clientSecret; tenant and
// product are immutable and new metadata never changes the clientID the
// record lives under.
func (c *Controller) UpdateSAMLConnection(ctx context.Context, params *UpdateSAMLConnectionParams) (conn *Connection, err error) {
	defer func() { c.observe("update_saml", err) }()

	if params.ClientID == "" {
		return nil, newValidationError("Please provide clientID")
	}
	if params.ClientSecret == "" {
		return nil, newValidationError("Please provide clientSecret")
	}
	if err := validateRedirectURLs(params.RedirectURL, params.DefaultRedirectURL); err != nil {
		return nil, err
	}

	conn, err = c.getByClientID(ctx, params.ClientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NewApiError("Connection not found", http.StatusNotFound)
	}
	if err != nil {
		return nil, err
	}
	if conn.ClientSecret != params.ClientSecret {
		return nil, newValidationError("clientSecret mismatch")
	}

	if params.RawMetadata != "" || params.EncodedRawMetadata != "" {
		rawMetadata, err := saml.DecodeRawMetadata(params.RawMetadata, params.EncodedRawMetadata)
		if err != nil {
			return nil, newValidationError(err.Error())
		}
		metadata, err := saml.ParseMetadata(rawMetadata)
		if err != nil {
			return nil, newValidationError(err.Error())
		}
		conn.IdPMetadata = metadata
	}

	mergeCommon(conn, params.Name, params.Description, params.DefaultRedirectURL, params.RedirectURL, params.ForceAuthn)

	if err := c.put(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// UpdateOIDCConnection applies a partial update to an existing OIDC
// connection.
func (c *Controller) UpdateOIDCConnection(ctx context.Context, params *UpdateOIDCConnectionParams) (conn *Connection, err error) {
	defer func() { c.observe("update_oidc", err) }()

	if params.ClientID == "" {
		return nil, newValidationError("Please provide clientID")
	}
	if params.ClientSecret == "" {
		return nil, newValidationError("Please provide clientSecret")
	}
	if err := validateRedirectURLs(params.RedirectURL, params.DefaultRedirectURL); err != nil {
		return nil, err
	}

	conn, err = c.getByClientID(ctx, params.ClientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NewApiError("Connection not found", http.StatusNotFound)
	}
	if err != nil {
		return nil, err
	}
	if conn.ClientSecret != params.ClientSecret {
		return nil, newValidationError("clientSecret mismatch")
	}

	if conn.OIDCProvider == nil {
		conn.OIDCProvider = &OIDCProviderInfo{}
	}
	if params.OIDCDiscoveryURL != "" {
		conn.OIDCProvider.DiscoveryURL = params.OIDCDiscoveryURL
	}
	if params.OIDCIssuer != "" {
		conn.OIDCProvider.Issuer = params.OIDCIssuer
	}
	if params.OIDCClientID != "" {
		conn.OIDCProvider.ClientID = params.OIDCClientID
	}
	if params.OIDCClientSecret != "" {
		conn.OIDCProvider.ClientSecret = params.OIDCClientSecret
	}

	mergeCommon(conn, params.Name, params.Description, params.DefaultRedirectURL, params.RedirectURL, params.ForceAuthn)

	if err := c.put(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// mergeCommon folds the optional common update fields into conn. Pointer
// fields apply whenever present, including explicit clears; plain fields
// apply only when non-empty.
func mergeCommon(conn *Connection, name, description *string, defaultRedirectURL string, redirectURL []string, forceAuthn *bool) {
	if name != nil {
		conn.Name = *name
	}
	if description != nil {
		conn.Description = *description
	}
	if defaultRedirectURL != "" {
		conn.DefaultRedirectURL = defaultRedirectURL
	}
	if len(redirectURL) > 0 {
		conn.RedirectURL = redirectURL
	}
	if forceAuthn != nil {
		conn.ForceAuthn = *forceAuthn
	}
}

// GetConnections looks connections up by clientID or by tenant/product. A
// clientID with no record yields an empty slice, not an error.
func (c *Controller) GetConnections(ctx context.Context, params *GetConnectionsParams) (conns []*Connection, err error) {
	defer func() { c.observe("get", err) }()

	if params.ClientID != "" {
		conn, err := c.getByClientID(ctx, params.ClientID)
		if errors.Is(err, store.ErrNotFound) {
			return []*Connection{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []*Connection{conn}, nil
	}

	if params.Tenant != "" && params.Product != "" {
		return c.getByTenantProduct(ctx, params.Tenant, params.Product)
	}

	return nil, newValidationError("Please provide `clientID` or `tenant` and `product`.")
}

func (c *Controller) getByTenantProduct(ctx context.Context, tenant, product string) ([]*Connection, error) {
	records, err := c.store.GetByIndex(ctx, store.Index{
		Name:  dbutils.IndexNameTenantProduct,
		Value: dbutils.KeyFromParts(tenant, product),
	})
	if err != nil {
		return nil, err
	}
	conns := make([]*Connection, 0, len(records))
	for _, raw := range records {
		var conn Connection
		if err := json.Unmarshal(raw, &conn); err != nil {
			return nil, fmt.Errorf("decode connection for %s/%s: %w", tenant, product, err)
		}
		conns = append(conns, &conn)
	}
	return conns, nil
}

// GetConnectionsByEntityID returns every SAML connection registered for the
// given IdP entityID, across tenants and products.
func (c *Controller) GetConnectionsByEntityID(ctx context.Context, entityID string) (conns []*Connection, err error) {
	defer func() { c.observe("get_by_entity_id", err) }()

	if entityID == "" {
		return nil, newValidationError("Please provide entityID")
	}
	records, err := c.store.GetByIndex(ctx, store.Index{
		Name:  dbutils.IndexNameEntityID,
		Value: entityID,
	})
	if err != nil {
		return nil, err
	}
	conns = make([]*Connection, 0, len(records))
	for _, raw := range records {
		var conn Connection
		if err := json.Unmarshal(raw, &conn); err != nil {
			return nil, fmt.Errorf("decode connection for entityID %s: %w", entityID, err)
		}
		conns = append(conns, &conn)
	}
	return conns, nil
}

// DeleteConnections removes connections either by an authenticated
// clientID/clientSecret pair or in bulk by tenant/product. Deleting an
// absent clientID is a no-op.
func (c *Controller) DeleteConnections(ctx context.Context, params *DeleteConnectionsParams) (err error) {
	defer func() { c.observe("delete", err) }()

	if params.ClientID != "" && params.ClientSecret != "" {
		conn, err := c.getByClientID(ctx, params.ClientID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if conn.ClientSecret != params.ClientSecret {
			return newValidationError("clientSecret mismatch")
		}
		return c.deleteConnection(ctx, conn)
	}

	if params.Tenant != "" && params.Product != "" {
		conns, err := c.getByTenantProduct(ctx, params.Tenant, params.Product)
		if err != nil {
			return err
		}
		for _, conn := range conns {
			if err := c.deleteConnection(ctx, conn); err != nil {
				return err
			}
		}
		return nil
	}

	return newValidationError("Please provide `clientID` and `clientSecret` or `tenant` and `product`.")
}

func (c *Controller) deleteConnection(ctx context.Context, conn *Connection) error {
	if err := c.store.Delete(ctx, conn.ClientID); err != nil {
		return err
	}
	c.logger.WithFields(map[string]interface{}{
		"tenant":  conn.Tenant,
		"product": conn.Product,
		"type":    string(conn.Type),
	}).Info("connection deleted")
	return nil
}
