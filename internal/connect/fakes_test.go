package connect

import (
	"context"
	"fmt"
	"sync"

	"github.com/rotterdam-cs/portal-connect/internal/rate"
)

// Fakes compartidos por los tests del paquete.

type fakeTenantConfig struct {
	sso              bool
	ssoErr           error
	verifiedRequired bool
	verifiedErr      error
	domains          []string
	domainsErr       error

	mu           sync.Mutex
	domainsCalls int
}

func (f *fakeTenantConfig) IsSSOEnabled(ctx context.Context, tenantID string) (bool, error) {
	return f.sso, f.ssoErr
}

func (f *fakeTenantConfig) IsVerifiedEmailRequired(ctx context.Context, tenantID string) (bool, error) {
	return f.verifiedRequired, f.verifiedErr
}

func (f *fakeTenantConfig) AllowedDomains(ctx context.Context, tenantID string) ([]string, error) {
	f.mu.Lock()
	f.domainsCalls++
	f.mu.Unlock()
	if f.domainsErr != nil {
		return nil, f.domainsErr
	}
	return f.domains, nil
}

// fakeStore registra cada operación de escritura en calls.
type fakeStore struct {
	existing *LocalAccount // devuelto por FindByEmail si matchea el email
	findErr  error

	createErr  error
	updateErr  error
	nextID     string
	created    []NewAccount
	calls      []string
	finds      int
	portraits  [][]byte
	lastEmails []string
}

func (s *fakeStore) FindByEmail(ctx context.Context, tenantID, email string) (*LocalAccount, error) {
	s.finds++
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.existing != nil && s.existing.Email == email {
		cp := *s.existing
		return &cp, nil
	}
	return nil, ErrAccountNotFound
}

func (s *fakeStore) CreateAccount(ctx context.Context, tenantID string, n NewAccount) (*LocalAccount, error) {
	s.calls = append(s.calls, "CreateAccount")
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, n)
	id := s.nextID
	if id == "" {
		id = fmt.Sprintf("u%d", len(s.created))
	}
	return &LocalAccount{
		ID:       id,
		TenantID: tenantID,

		Email:     n.Email,
		FirstName: n.FirstName,
		LastName:  n.LastName,
		Male:      n.Male,

		EmailVerified: n.EmailVerified,
		PasswordReset: n.PasswordReset,
		AgreedToTerms: n.AgreedToTerms,

		ScreenName: n.ScreenName,
		Locale:     n.Locale,

		BirthdayMonth: n.BirthdayMonth,
		BirthdayDay:   n.BirthdayDay,
		BirthdayYear:  n.BirthdayYear,

		ReminderQuestion: n.ReminderQuestion,
		ReminderAnswer:   n.ReminderAnswer,
	}, nil
}

func (s *fakeStore) UpdateAccount(ctx context.Context, a *LocalAccount) error {
	s.calls = append(s.calls, "UpdateAccount")
	if s.updateErr != nil {
		return s.updateErr
	}
	cp := *a
	s.existing = &cp
	return nil
}

func (s *fakeStore) UpdateEmailAddress(ctx context.Context, accountID, email string) error {
	s.calls = append(s.calls, "UpdateEmailAddress")
	s.lastEmails = append(s.lastEmails, email)
	return s.updateErr
}

func (s *fakeStore) UpdateEmailVerified(ctx context.Context, accountID string, verified bool) error {
	s.calls = append(s.calls, "UpdateEmailVerified")
	return s.updateErr
}

func (s *fakeStore) UpdatePasswordReset(ctx context.Context, accountID string, reset bool) error {
	s.calls = append(s.calls, "UpdatePasswordReset")
	return s.updateErr
}

func (s *fakeStore) UpdateLastLogin(ctx context.Context, accountID string) error {
	s.calls = append(s.calls, "UpdateLastLogin")
	return s.updateErr
}

func (s *fakeStore) UpdatePortrait(ctx context.Context, accountID string, image []byte) error {
	s.calls = append(s.calls, "UpdatePortrait")
	s.portraits = append(s.portraits, image)
	return nil
}

type fakePortraits struct {
	img   []byte
	err   error
	calls int
}

func (f *fakePortraits) FetchImage(ctx context.Context, pictureURL string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

type fakeMailer struct {
	err   error
	calls int
	to    []string
}

func (f *fakeMailer) SendWelcome(ctx context.Context, to, firstName string) error {
	f.calls++
	f.to = append(f.to, to)
	return f.err
}

type fakeLimiter struct {
	allowed bool
	err     error
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (rate.Result, error) {
	return rate.Result{Allowed: f.allowed}, f.err
}

type fakeProvider struct {
	token    string
	tokenErr error

	profile    *IdentityProfile
	profileErr error

	mu            sync.Mutex
	exchangeCalls int
	fetchCalls    int
}

func (f *fakeProvider) ExchangeCode(ctx context.Context, tenantID, redirectURI, code string) (string, error) {
	f.mu.Lock()
	f.exchangeCalls++
	f.mu.Unlock()
	return f.token, f.tokenErr
}

func (f *fakeProvider) FetchProfile(ctx context.Context, tenantID, accessToken string) (*IdentityProfile, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}
