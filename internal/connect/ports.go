package connect

import "context"

// IdentityProvider covers the two outbound calls to the identity provider.
type IdentityProvider interface {
	// ExchangeCode trades an authorization code + redirect URI for an access
	// token. Devuelve "" cuando el provider no entrega token (rechazo
	// esperado); error solo en fallos de transporte. El orquestador trata
	// ambos como "attempt failed, abandon silently".
	ExchangeCode(ctx context.Context, tenantID, redirectURI, code string) (string, error)

	// FetchProfile retrieves the normalized identity profile for the token.
	// Returns ErrProviderError (wrapped) when the response carries an error
	// object instead of a profile.
	FetchProfile(ctx context.Context, tenantID, accessToken string) (*IdentityProfile, error)
}

// PortraitFetcher downloads the profile picture bytes from the provider.
type PortraitFetcher interface {
	FetchImage(ctx context.Context, pictureURL string) ([]byte, error)
}

// UserStore is the external multi-tenant user-store CRUD API. Sus garantías
// transaccionales quedan fuera del alcance de este core.
type UserStore interface {
	// FindByEmail returns ErrAccountNotFound (wrapped or not) on a miss.
	FindByEmail(ctx context.Context, tenantID, email string) (*LocalAccount, error)

	CreateAccount(ctx context.Context, tenantID string, acct NewAccount) (*LocalAccount, error)
	UpdateAccount(ctx context.Context, acct *LocalAccount) error

	UpdateEmailAddress(ctx context.Context, accountID, email string) error
	UpdateEmailVerified(ctx context.Context, accountID string, verified bool) error
	UpdatePasswordReset(ctx context.Context, accountID string, reset bool) error
	UpdateLastLogin(ctx context.Context, accountID string) error
	UpdatePortrait(ctx context.Context, accountID string, image []byte) error
}

// TenantConfig is the outbound tenant configuration store.
type TenantConfig interface {
	IsSSOEnabled(ctx context.Context, tenantID string) (bool, error)
	IsVerifiedEmailRequired(ctx context.Context, tenantID string) (bool, error)

	// AllowedDomains: lista vacía significa "todos los dominios aceptados".
	// Un error de lookup dispara el fail-open de DomainPolicy.
	AllowedDomains(ctx context.Context, tenantID string) ([]string, error)
}

// WelcomeMailer sends the post-creation welcome email. Non-fatal collaborator.
type WelcomeMailer interface {
	SendWelcome(ctx context.Context, email, firstName string) error
}
