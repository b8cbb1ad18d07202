package connect

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rotterdam-cs/portal-connect/internal/audit"
	"github.com/rotterdam-cs/portal-connect/internal/metrics"
	"github.com/rotterdam-cs/portal-connect/internal/observability/logger"
	"github.com/rotterdam-cs/portal-connect/internal/rate"
	"github.com/rotterdam-cs/portal-connect/internal/util"
)

// Status is the terminal state of a connect attempt.
type Status string

const (
	// StatusBound: cuenta resuelta/creada y sincronizada; la capa web puede
	// crear sesión.
	StatusBound Status = "bound"

	// StatusRejected: el intento terminó sin cuenta. El caller redirige al
	// referrer genérico sin exponer qué check falló (evita enumeración de
	// dominios/cuentas).
	StatusRejected Status = "rejected"

	// StatusDisabled: SSO no habilitado para el tenant; no-op.
	StatusDisabled Status = "disabled"
)

// Reject reasons. Solo para logs y métricas; nunca llegan al usuario.
const (
	ReasonNoCode           = "no_code"
	ReasonNoToken          = "no_token"
	ReasonProviderError    = "provider_error"
	ReasonNoEmail          = "no_email"
	ReasonEmailNotVerified = "email_not_verified"
	ReasonDomainNotAllowed = "domain_not_allowed"
	ReasonRateLimited      = "rate_limited"
)

// Outcome is the terminal result of one connect attempt.
type Outcome struct {
	Status  Status
	Account *LocalAccount // set only on StatusBound
	Created bool          // true si la cuenta se creó en este intento

	// Reason diagnostica un StatusRejected. Interno: el caller debe mostrar
	// siempre el mismo redirect genérico.
	Reason string
}

func rejected(reason string) Outcome {
	return Outcome{Status: StatusRejected, Reason: reason}
}

// Orchestrator composes the full connect sequence:
//
//	code → token → profile → policy → resolve → sync/create → outcome
//
// Cada intento es una secuencia lineal request-scoped, sin paralelismo
// interno. Intentos concurrentes para el mismo tenant+email se colapsan con
// singleflight para amortiguar callbacks duplicados del provider.
type Orchestrator struct {
	Provider    IdentityProvider
	Tenants     TenantConfig
	Policy      *DomainPolicy
	Resolver    *AccountResolver
	Provisioner *Provisioner

	// Limiter opcional por tenant. Nil = sin límite.
	Limiter rate.Limiter

	group singleflight.Group
}

func NewOrchestrator(provider IdentityProvider, tenants TenantConfig, policy *DomainPolicy, resolver *AccountResolver, provisioner *Provisioner) *Orchestrator {
	return &Orchestrator{
		Provider:    provider,
		Tenants:     tenants,
		Policy:      policy,
		Resolver:    resolver,
		Provisioner: provisioner,
	}
}

// Connect runs one attempt to a terminal state. Rechazos esperados salen como
// Outcome (nunca error); los errores retornados son fallos fatales de store o
// configuración que el caller debe tratar como 5xx.
//
// Ningún path de rechazo deja mutaciones: todos los checks ocurren antes de
// invocar al Provisioner.
func (o *Orchestrator) Connect(ctx context.Context, tenantID, redirectURI, code string) (Outcome, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("connect.orchestrator"),
		logger.TenantID(tenantID),
		logger.Provider("google"),
	)

	out, err := o.connect(ctx, log, tenantID, redirectURI, code)
	if err != nil {
		metrics.ConnectAttempt(tenantID, "error")
		audit.Record(ctx, audit.Event{Action: "connect.error", TenantID: tenantID})
		return Outcome{}, err
	}

	metrics.ConnectAttempt(tenantID, string(out.Status))
	switch out.Status {
	case StatusRejected:
		log.Info("connect attempt rejected", logger.String("reason", out.Reason))
		audit.Record(ctx, audit.Event{Action: "connect.rejected", TenantID: tenantID, Reason: out.Reason})
	case StatusBound:
		log.Info("connect attempt bound",
			logger.UserID(out.Account.ID),
			logger.Bool("created", out.Created),
		)
		audit.Record(ctx, audit.Event{
			Action:    "connect.bound",
			TenantID:  tenantID,
			AccountID: out.Account.ID,
			Created:   out.Created,
		})
	case StatusDisabled:
		audit.Record(ctx, audit.Event{Action: "connect.disabled", TenantID: tenantID})
	}
	return out, nil
}

func (o *Orchestrator) connect(ctx context.Context, log *zap.Logger, tenantID, redirectURI, code string) (Outcome, error) {
	enabled, err := o.Tenants.IsSSOEnabled(ctx, tenantID)
	if err != nil {
		return Outcome{}, fmt.Errorf("sso enabled lookup: %w", err)
	}
	if !enabled {
		return Outcome{Status: StatusDisabled}, nil
	}

	if o.Limiter != nil {
		res, err := o.Limiter.Allow(ctx, rate.AttemptKey(tenantID))
		switch {
		case err != nil:
			// Limiter caído: no bloqueamos logins por un incidente de redis.
			log.Warn("rate limiter unavailable, allowing", logger.Err(err))
		case !res.Allowed:
			return rejected(ReasonRateLimited), nil
		}
	}

	// Start → TokenExchanged
	if code == "" {
		return rejected(ReasonNoCode), nil
	}
	token, err := o.Provider.ExchangeCode(ctx, tenantID, redirectURI, code)
	if err != nil {
		// Fallo de transporte: mismo tratamiento que "sin token".
		log.Debug("token exchange failed", logger.Err(err))
		return rejected(ReasonNoToken), nil
	}
	if token == "" {
		return rejected(ReasonNoToken), nil
	}

	// TokenExchanged → ProfileFetched
	profile, err := o.Provider.FetchProfile(ctx, tenantID, token)
	if err != nil {
		log.Debug("profile fetch failed", logger.Err(err))
		return rejected(ReasonProviderError), nil
	}
	if profile == nil {
		// Provider devolvió (nil, nil): perfil ausente, mismo tratamiento que
		// una respuesta de error.
		log.Debug("provider returned no profile")
		return rejected(ReasonProviderError), nil
	}
	if profile.Email == "" {
		return rejected(ReasonNoEmail), nil
	}

	// ProfileFetched → PolicyChecked
	required, err := o.Tenants.IsVerifiedEmailRequired(ctx, tenantID)
	if err != nil {
		return Outcome{}, fmt.Errorf("verified email requirement lookup: %w", err)
	}
	if required && !profile.EmailVerified {
		return rejected(ReasonEmailNotVerified), nil
	}
	if !o.Policy.Evaluate(ctx, tenantID, profile.Email).Allowed() {
		return rejected(ReasonDomainNotAllowed), nil
	}

	// PolicyChecked → AccountResolved → Synced/Created.
	// Colapsado por tenant+email: dos callbacks duplicados no corren la
	// creación en paralelo.
	key := tenantID + "\x00" + profile.Email
	v, err, _ := o.group.Do(key, func() (any, error) {
		return o.resolveAndProvision(ctx, tenantID, profile)
	})
	if err != nil {
		return Outcome{}, err
	}
	return v.(Outcome), nil
}

func (o *Orchestrator) resolveAndProvision(ctx context.Context, tenantID string, profile *IdentityProfile) (Outcome, error) {
	log := logger.From(ctx).With(logger.Component("connect.orchestrator"), logger.TenantID(tenantID))

	acct, err := o.Resolver.Resolve(ctx, tenantID, profile.Email)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve account: %w", err)
	}

	if acct == nil {
		log.Debug("no existing account, provisioning",
			logger.String("email_masked", util.MaskEmail(profile.Email)),
		)
		created, err := o.Provisioner.CreateAccount(ctx, tenantID, profile)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Status: StatusBound, Account: created, Created: true}, nil
	}

	synced, err := o.Provisioner.SyncAccount(ctx, acct, profile)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: StatusBound, Account: synced}, nil
}
