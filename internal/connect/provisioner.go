package connect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rotterdam-cs/portal-connect/internal/metrics"
	"github.com/rotterdam-cs/portal-connect/internal/observability/logger"
	"github.com/rotterdam-cs/portal-connect/internal/security/password"
	tokens "github.com/rotterdam-cs/portal-connect/internal/security/token"
	"github.com/rotterdam-cs/portal-connect/internal/util"
)

// Placeholder reminder pair for SSO-provisioned accounts. The user never sets
// one; la cuenta fuerza password reset en el primer uso igualmente.
const (
	reminderQuestion = "Created by"
	reminderAnswer   = "Rotterdam CS"
)

// Default birthdate for provisioned accounts. The provider does not supply a
// birthdate; 1970-01-01 is a deliberate fixed default, not a parsing artifact.
const (
	defaultBirthdayMonth = int(time.January)
	defaultBirthdayDay   = 1
	defaultBirthdayYear  = 1970
)

// Provisioner creates local accounts from identity profiles and reconciles
// existing accounts with freshly fetched profiles. Ambas operaciones son
// idempotentes frente a re-invocación con el mismo input.
type Provisioner struct {
	Store     UserStore
	Portraits PortraitFetcher
	Mailer    WelcomeMailer // optional

	// DefaultLocale para cuentas nuevas (ej: "en_US").
	DefaultLocale string
}

func NewProvisioner(store UserStore, portraits PortraitFetcher, mailer WelcomeMailer, locale string) *Provisioner {
	if locale == "" {
		locale = "en_US"
	}
	return &Provisioner{Store: store, Portraits: portraits, Mailer: mailer, DefaultLocale: locale}
}

// CreateAccount provisions a new local account from the profile.
//
// La cuenta nueva sale con: screen name autogenerado, password autogenerada
// (hasheada, nunca retenida en claro), password-reset forzado, email
// pre-verificado, términos pre-aceptados, reminder placeholder, locale default
// y birthdate fijo 1970-01-01.
//
// Portrait y welcome mail son side effects no fatales: si fallan se loggean y
// se siguen; nunca revierten la creación.
func (p *Provisioner) CreateAccount(ctx context.Context, tenantID string, profile *IdentityProfile) (*LocalAccount, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("connect.provisioner"))

	phc, err := p.generatePasswordHash()
	if err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}

	acct, err := p.Store.CreateAccount(ctx, tenantID, NewAccount{
		Email:     profile.Email,
		FirstName: profile.GivenName,
		LastName:  profile.FamilyName,
		Male:      profile.Male(),

		ScreenName:   generateScreenName(),
		PasswordHash: phc,
		Locale:       p.DefaultLocale,

		BirthdayMonth: defaultBirthdayMonth,
		BirthdayDay:   defaultBirthdayDay,
		BirthdayYear:  defaultBirthdayYear,

		ReminderQuestion: reminderQuestion,
		ReminderAnswer:   reminderAnswer,

		EmailVerified: true,
		PasswordReset: true,
		AgreedToTerms: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	// A partir de acá la cuenta existe: cualquier error posterior de store es
	// fatal y deja la creación parcialmente aplicada (sin portrait o sin
	// last-login). Riesgo inherente, documentado; no se "arregla" en silencio.
	if err := p.Store.UpdateLastLogin(ctx, acct.ID); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	if err := p.Store.UpdatePasswordReset(ctx, acct.ID, true); err != nil {
		return nil, fmt.Errorf("update password reset: %w", err)
	}
	if err := p.Store.UpdateEmailVerified(ctx, acct.ID, true); err != nil {
		return nil, fmt.Errorf("update email verified: %w", err)
	}
	acct.PasswordReset = true
	acct.EmailVerified = true

	p.updatePortrait(ctx, tenantID, acct.ID, profile.PictureURL)
	p.sendWelcome(ctx, tenantID, profile)

	log.Info("account provisioned",
		logger.TenantID(tenantID),
		logger.UserID(acct.ID),
		logger.String("email_masked", util.MaskEmail(acct.Email)),
	)
	metrics.AccountProvisioned(tenantID, "created")

	return acct, nil
}

// SyncAccount reconciles the stored account with a freshly fetched profile.
//
// Idempotencia: si email, nombre, apellido y male-flag no cambiaron respecto
// del registro almacenado, no se hace NINGUNA escritura. Birthdate, locale,
// screen name y social identifiers se preservan siempre del registro local.
func (p *Provisioner) SyncAccount(ctx context.Context, acct *LocalAccount, profile *IdentityProfile) (*LocalAccount, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("connect.provisioner"))

	email := profile.Email
	firstName := profile.GivenName
	lastName := profile.FamilyName
	male := profile.Male()

	if email == acct.Email && firstName == acct.FirstName &&
		lastName == acct.LastName && male == acct.Male {
		metrics.AccountProvisioned(acct.TenantID, "unchanged")
		return acct, nil
	}

	// Email primero: el cambio de dirección es una operación propia del store.
	if !strings.EqualFold(email, acct.Email) {
		if err := p.Store.UpdateEmailAddress(ctx, acct.ID, email); err != nil {
			return nil, fmt.Errorf("update email address: %w", err)
		}
		acct.Email = email
	}

	if err := p.Store.UpdateEmailVerified(ctx, acct.ID, true); err != nil {
		return nil, fmt.Errorf("update email verified: %w", err)
	}
	acct.EmailVerified = true

	acct.FirstName = firstName
	acct.LastName = lastName
	acct.Male = male
	if err := p.Store.UpdateAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}

	p.updatePortrait(ctx, acct.TenantID, acct.ID, profile.PictureURL)

	log.Debug("account synced",
		logger.TenantID(acct.TenantID),
		logger.UserID(acct.ID),
	)
	metrics.AccountProvisioned(acct.TenantID, "synced")

	return acct, nil
}

// updatePortrait fetches and attaches the profile picture. Fallos acá se
// loggean y se tragan: nunca abortan creación ni sync.
func (p *Provisioner) updatePortrait(ctx context.Context, tenantID, accountID, pictureURL string) {
	if p.Portraits == nil || pictureURL == "" {
		return
	}
	log := logger.From(ctx).With(logger.Component("connect.provisioner"))

	img, err := p.Portraits.FetchImage(ctx, pictureURL)
	if err != nil {
		log.Warn("portrait fetch failed", logger.UserID(accountID), logger.Err(err))
		metrics.SideEffectFailure(tenantID, "portrait")
		return
	}
	if err := p.Store.UpdatePortrait(ctx, accountID, img); err != nil {
		log.Warn("portrait update failed", logger.UserID(accountID), logger.Err(err))
		metrics.SideEffectFailure(tenantID, "portrait")
	}
}

func (p *Provisioner) sendWelcome(ctx context.Context, tenantID string, profile *IdentityProfile) {
	if p.Mailer == nil {
		return
	}
	if err := p.Mailer.SendWelcome(ctx, profile.Email, profile.GivenName); err != nil {
		logger.From(ctx).Warn("welcome mail failed",
			logger.Component("connect.provisioner"),
			logger.String("email_masked", util.MaskEmail(profile.Email)),
			logger.Err(err),
		)
		metrics.SideEffectFailure(tenantID, "welcome_mail")
	}
}

func (p *Provisioner) generatePasswordHash() (string, error) {
	plain, err := tokens.GenerateOpaqueToken(24)
	if err != nil {
		return "", err
	}
	return password.Hash(password.Default, plain)
}

// generateScreenName: prefijo fijo + uuid corto; único con probabilidad
// suficiente, el store igual tiene unique index.
func generateScreenName() string {
	return "gc." + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}
