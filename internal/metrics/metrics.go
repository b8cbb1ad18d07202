// Package metrics expone contadores Prometheus del flujo de conexión.
//
// El fail-open de DomainPolicy es una decisión de confianza: tiene que quedar
// visible en métricas, no solo en logs.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	registerErr  error

	connectAttemptsTotal  *prometheus.CounterVec
	policyFailOpenTotal   *prometheus.CounterVec
	sideEffectFailsTotal  *prometheus.CounterVec
	accountsProvisionedTo *prometheus.CounterVec
)

// Register inicializa y registra las métricas en el Registerer dado.
// Si registry es nil usa el default. Idempotente.
func Register(registry prometheus.Registerer) error {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	registerOnce.Do(func() {
		connectAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connect_attempts_total",
			Help: "Intentos de conexión SSO por tenant y resultado terminal",
		}, []string{"tenant", "outcome"})

		policyFailOpenTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "domain_policy_fail_open_total",
			Help: "Decisiones fail-open de DomainPolicy por fallo leyendo la allowlist",
		}, []string{"tenant"})

		sideEffectFailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connect_side_effect_failures_total",
			Help: "Fallos no fatales de side effects (portrait, welcome mail, last login)",
		}, []string{"tenant", "effect"})

		accountsProvisionedTo = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_provisioned_total",
			Help: "Cuentas locales creadas o sincronizadas por SSO",
		}, []string{"tenant", "action"}) // action: created|synced|unchanged

		for _, c := range []prometheus.Collector{
			connectAttemptsTotal, policyFailOpenTotal, sideEffectFailsTotal, accountsProvisionedTo,
		} {
			if err := registry.Register(c); err != nil {
				registerErr = err
				return
			}
		}
	})

	return registerErr
}

func ConnectAttempt(tenant, outcome string) {
	if connectAttemptsTotal != nil {
		connectAttemptsTotal.WithLabelValues(tenant, outcome).Inc()
	}
}

func PolicyFailOpen(tenant string) {
	if policyFailOpenTotal != nil {
		policyFailOpenTotal.WithLabelValues(tenant).Inc()
	}
}

func SideEffectFailure(tenant, effect string) {
	if sideEffectFailsTotal != nil {
		sideEffectFailsTotal.WithLabelValues(tenant, effect).Inc()
	}
}

func AccountProvisioned(tenant, action string) {
	if accountsProvisionedTo != nil {
		accountsProvisionedTo.WithLabelValues(tenant, action).Inc()
	}
}
