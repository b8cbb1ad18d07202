package connect

import (
	"context"
	"strings"

	"github.com/rotterdam-cs/portal-connect/internal/metrics"
	"github.com/rotterdam-cs/portal-connect/internal/observability/logger"
	"github.com/rotterdam-cs/portal-connect/internal/util"
)

// PolicyDecision is the named outcome of a domain policy evaluation.
type PolicyDecision string

const (
	PolicyAllowed PolicyDecision = "allowed"
	PolicyDenied  PolicyDecision = "denied"

	// PolicyUnavailable: la allowlist no se pudo leer (fallo de
	// infraestructura, no "lista vacía"). Por diseño el resultado es ALLOW:
	// fail-open para no dejar a todo un tenant afuera por un incidente de
	// storage. Queda en logs y métricas porque es una decisión de confianza.
	PolicyUnavailable PolicyDecision = "unavailable"
)

// Allowed reports whether the decision lets the attempt proceed.
// PolicyUnavailable cuenta como permitido (fail-open).
func (d PolicyDecision) Allowed() bool { return d != PolicyDenied }

// DomainPolicy decides whether a tenant accepts an email's domain.
type DomainPolicy struct {
	Tenants TenantConfig
}

func NewDomainPolicy(tenants TenantConfig) *DomainPolicy {
	return &DomainPolicy{Tenants: tenants}
}

// Evaluate parses the email and matches its domain against the tenant
// allowlist. Matching es case-sensitive exacto, igual que el sistema original;
// no agregamos case-folding acá.
func (p *DomainPolicy) Evaluate(ctx context.Context, tenantID, email string) PolicyDecision {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("connect.policy"))

	// "user@" parsea en dos partes con dominio vacío; también es rechazo.
	userAndDomain := strings.Split(email, "@")
	if len(userAndDomain) != 2 || userAndDomain[1] == "" {
		log.Debug("email without exactly one domain part",
			logger.TenantID(tenantID),
			logger.String("email_masked", util.MaskEmail(email)),
		)
		return PolicyDenied
	}
	domain := userAndDomain[1]

	allowed, err := p.Tenants.AllowedDomains(ctx, tenantID)
	if err != nil {
		log.Error("allowlist lookup failed, failing open",
			logger.TenantID(tenantID), logger.Err(err),
		)
		metrics.PolicyFailOpen(tenantID)
		return PolicyUnavailable
	}

	// Sin lista de dominios permitidos => todos aceptados.
	if len(allowed) == 0 {
		return PolicyAllowed
	}

	for _, d := range allowed {
		if d == domain {
			return PolicyAllowed
		}
	}
	return PolicyDenied
}

// IsAllowed is the boolean contract over Evaluate.
func (p *DomainPolicy) IsAllowed(ctx context.Context, tenantID, email string) bool {
	return p.Evaluate(ctx, tenantID, email).Allowed()
}
