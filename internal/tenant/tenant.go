// Package tenant provee el acceso a configuración por tenant del flujo
// connect: SSO habilitado, verified-email requerido, allowlist de dominios y
// credenciales OAuth del tenant.
package tenant

import (
	"context"
	"errors"
)

// Settings son los settings de connect de un tenant.
type Settings struct {
	TenantID string `json:"tenantId"`

	SSOEnabled            bool `json:"ssoEnabled"`
	VerifiedEmailRequired bool `json:"verifiedEmailRequired"`

	// AllowedDomains: orden preservado; vacío => sin restricción.
	AllowedDomains []string `json:"allowedDomains,omitempty"`

	GoogleClientID     string `json:"googleClientId,omitempty"`
	GoogleClientSecret string `json:"googleClientSecret,omitempty"`
}

// ErrTenantNotFound: el tenant no existe en el settings store.
var ErrTenantNotFound = errors.New("tenant: not found")

// Store carga settings por tenant.
type Store interface {
	Settings(ctx context.Context, tenantID string) (*Settings, error)
}
