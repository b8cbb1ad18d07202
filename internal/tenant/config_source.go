package tenant

import (
	"context"
	"fmt"

	"github.com/rotterdam-cs/portal-connect/internal/google"
)

// ConfigSource adapta un Store a los ports que consumen los componentes del
// flujo: connect.TenantConfig y google.CredentialSource.
type ConfigSource struct {
	Store Store
}

func NewConfigSource(s Store) *ConfigSource {
	return &ConfigSource{Store: s}
}

func (c *ConfigSource) IsSSOEnabled(ctx context.Context, tenantID string) (bool, error) {
	s, err := c.Store.Settings(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return s.SSOEnabled, nil
}

func (c *ConfigSource) IsVerifiedEmailRequired(ctx context.Context, tenantID string) (bool, error) {
	s, err := c.Store.Settings(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return s.VerifiedEmailRequired, nil
}

func (c *ConfigSource) AllowedDomains(ctx context.Context, tenantID string) ([]string, error) {
	s, err := c.Store.Settings(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.AllowedDomains, nil
}

func (c *ConfigSource) OAuthCredentials(ctx context.Context, tenantID string) (google.Credentials, error) {
	s, err := c.Store.Settings(ctx, tenantID)
	if err != nil {
		return google.Credentials{}, err
	}
	if s.GoogleClientID == "" {
		return google.Credentials{}, fmt.Errorf("tenant %s: google client not configured", tenantID)
	}
	return google.Credentials{ClientID: s.GoogleClientID, ClientSecret: s.GoogleClientSecret}, nil
}
