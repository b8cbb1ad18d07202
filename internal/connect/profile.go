// Package connect implements the identity-linking and provisioning engine for
// the "Sign in with Google" flow: token exchange, identity fetch, domain
// policy, account resolution and idempotent profile reconciliation.
//
// Todo lo demás (sesión, cookies, redirects, HTTP serving) vive fuera de este
// paquete y se inyecta como colaborador.
package connect

// IdentityProfile is the normalized identity fetched from the provider for a
// single connect attempt. Any field may be empty except Email, which is
// load-bearing for account resolution.
type IdentityProfile struct {
	// SubjectID is the provider's numeric subject. Older protocol versions
	// sent it as "id", newer ones as "sub"; the fetcher normalizes both.
	// Zero means absent, which is valid.
	SubjectID int64

	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	PictureURL    string
	Gender        string
}

// Male reports whether the profile's gender maps to the local male flag.
// Only the literal "male" maps to true; anything else (including absent) is false.
func (p IdentityProfile) Male() bool {
	return p.Gender == "male"
}
