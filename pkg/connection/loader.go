package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// BootstrapConnection is one entry of the boot-time connection manifest.
// Entries carrying OIDC provider fields are provisioned as OIDC
// connections, all others as SAML.
type BootstrapConnection struct {
	Tenant             string  `json:"tenant"`
	Product            string  `json:"product"`
	Name               string  `json:"name,omitempty"`
	Description        string  `json:"description,omitempty"`
	DefaultRedirectURL string  `json:"defaultRedirectUrl"`
	RedirectURL        URLList `json:"redirectUrl"`
	RawMetadata        string  `json:"rawMetadata,omitempty"`
	EncodedRawMetadata string  `json:"encodedRawMetadata,omitempty"`
	OIDCDiscoveryURL   string  `json:"oidcDiscoveryUrl,omitempty"`
	OIDCIssuer         string  `json:"oidcIssuer,omitempty"`
	OIDCClientID       string  `json:"oidcClientId,omitempty"`
	OIDCClientSecret   string  `json:"oidcClientSecret,omitempty"`
	ForceAuthn         bool    `json:"forceAuthn,omitempty"`
}

func (b *BootstrapConnection) isOIDC() bool {
	return b.OIDCDiscoveryURL != "" || b.OIDCIssuer != "" || b.OIDCClientID != ""
}

// PreLoadConnections provisions every manifest entry through the regular
// create path. Creation is idempotent, so replaying the same manifest on
// every boot keeps existing clientSecrets intact.
func (c *Controller) PreLoadConnections(ctx context.Context, manifest []BootstrapConnection) error {
	for i := range manifest {
		entry := &manifest[i]
		var err error
		if entry.isOIDC() {
			_, err = c.CreateOIDCConnection(ctx, &CreateOIDCConnectionParams{
				Tenant:             entry.Tenant,
				Product:            entry.Product,
				Name:               entry.Name,
				Description:        entry.Description,
				DefaultRedirectURL: entry.DefaultRedirectURL,
				RedirectURL:        entry.RedirectURL,
				OIDCDiscoveryURL:   entry.OIDCDiscoveryURL,
				OIDCIssuer:         entry.OIDCIssuer,
				OIDCClientID:       entry.OIDCClientID,
				OIDCClientSecret:   entry.OIDCClientSecret,
				ForceAuthn:         entry.ForceAuthn,
			})
		} else {
			_, err = c.CreateSAMLConnection(ctx, &CreateSAMLConnectionParams{
				Tenant:             entry.Tenant,
				Product:            entry.Product,
				Name:               entry.Name,
				Description:        entry.Description,
				DefaultRedirectURL: entry.DefaultRedirectURL,
				RedirectURL:        entry.RedirectURL,
				RawMetadata:        entry.RawMetadata,
				EncodedRawMetadata: entry.EncodedRawMetadata,
				ForceAuthn:         entry.ForceAuthn,
			})
		}
		if err != nil {
			return fmt.Errorf("preload connection %d (%s/%s): %w", i, entry.Tenant, entry.Product, err)
		}
	}
	return nil
}

// LoadManifestDir reads every .json file in dir as a BootstrapConnection.
// Files are visited in lexical order so manifests apply deterministically.
func LoadManifestDir(dir string) ([]BootstrapConnection, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read manifest dir %s: %w", dir, err)
	}

	var manifest []BootstrapConnection
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read manifest %s: %w", path, err)
		}
		var conn BootstrapConnection
		if err := json.Unmarshal(raw, &conn); err != nil {
			return nil, fmt.Errorf("parse manifest %s: %w", path, err)
		}
		manifest = append(manifest, conn)
	}
	return manifest, nil
}

// WatchManifestDir provisions the manifest in dir once, then re-provisions
// whenever a .json file in it is written or created. Blocks until ctx is
// done.
func (c *Controller) WatchManifestDir(ctx context.Context, dir string) error {
	manifest, err := LoadManifestDir(dir)
	if err != nil {
		return err
	}
	if err := c.PreLoadConnections(ctx, manifest); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create manifest watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch manifest dir %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Ext(event.Name) != ".json" {
				continue
			}
			manifest, err := LoadManifestDir(dir)
			if err != nil {
				c.logger.WithError(err).Error("manifest reload failed")
				continue
			}
			if err := c.PreLoadConnections(ctx, manifest); err != nil {
				c.logger.WithError(err).Error("manifest reload failed")
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.WithError(watchErr).Error("manifest watcher error")
		}
	}
}
