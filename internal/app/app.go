// Package app arma el grafo de dependencias del flujo connect a partir de la
// configuración: pool de Postgres, cache, settings de tenant, cliente Google,
// provisioner y orquestador.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rotterdam-cs/portal-connect/internal/cache"
	cachemem "github.com/rotterdam-cs/portal-connect/internal/cache/memory"
	cacheredis "github.com/rotterdam-cs/portal-connect/internal/cache/redis"
	"github.com/rotterdam-cs/portal-connect/internal/config"
	"github.com/rotterdam-cs/portal-connect/internal/connect"
	"github.com/rotterdam-cs/portal-connect/internal/email"
	"github.com/rotterdam-cs/portal-connect/internal/google"
	"github.com/rotterdam-cs/portal-connect/internal/metrics"
	"github.com/rotterdam-cs/portal-connect/internal/rate"
	storepg "github.com/rotterdam-cs/portal-connect/internal/store/pg"
	"github.com/rotterdam-cs/portal-connect/internal/tenant"
)

// App expone los componentes armados del flujo.
type App struct {
	Cfg *config.Config

	Pool         *pgxpool.Pool
	Users        *storepg.UserStore
	Tenants      *tenant.ConfigSource
	TenantStore  tenant.Store
	Google       *google.Client
	Policy       *connect.DomainPolicy
	Resolver     *connect.AccountResolver
	Provisioner  *connect.Provisioner
	Orchestrator *connect.Orchestrator

	close []func()
}

// New construye la app. El caller debe llamar Close() al terminar.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Cfg: cfg}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	if cfg.Storage.DSN == "" {
		return nil, fmt.Errorf("storage dsn not configured")
	}
	pool, err := storepg.NewPool(ctx, cfg.Storage.DSN, cfg.Storage.Postgres.MaxConns, 0)
	if err != nil {
		return nil, fmt.Errorf("open pg pool: %w", err)
	}
	a.close = append(a.close, pool.Close)
	a.Pool = pool
	a.Users = storepg.NewUserStore(pool)

	var c cache.Cache
	var limiter rate.Limiter
	switch cfg.Cache.Kind {
	case "redis":
		rc := cacheredis.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
		a.close = append(a.close, func() { _ = rc.Close() })
		c = rc
		if cfg.Connect.RateLimit.Max > 0 {
			limiter = rate.NewRedisLimiter(rc.Client(), cfg.Cache.Redis.Prefix+"rl:", cfg.Connect.RateLimit.Max, cfg.RateLimitWindow())
		}
	default:
		c = cachemem.New(cfg.TenantCacheTTL())
	}

	a.TenantStore = tenant.NewCachedStore(tenant.NewPGStore(pool), c, cfg.TenantCacheTTL())
	a.Tenants = tenant.NewConfigSource(a.TenantStore)

	a.Google = google.New(a.Tenants, cfg.Google.TokenURL, cfg.Google.UserInfoURL, cfg.GoogleTimeout())
	if cfg.Google.VerifyIDToken {
		a.Google.Verifier = google.NewIDTokenVerifier(cfg.GoogleTimeout())
	}

	var mailer connect.WelcomeMailer
	if cfg.Connect.WelcomeEmail && cfg.SMTP.Host != "" {
		s := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
		s.TLSMode = cfg.SMTP.TLS
		s.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
		mailer = s
	}

	a.Policy = connect.NewDomainPolicy(a.Tenants)
	a.Resolver = connect.NewAccountResolver(a.Users)
	a.Provisioner = connect.NewProvisioner(a.Users, a.Google, mailer, cfg.Connect.DefaultLocale)
	a.Orchestrator = connect.NewOrchestrator(a.Google, a.Tenants, a.Policy, a.Resolver, a.Provisioner)
	a.Orchestrator.Limiter = limiter

	return a, nil
}

// Close libera pools y conexiones en orden inverso.
func (a *App) Close() {
	for i := len(a.close) - 1; i >= 0; i-- {
		a.close[i]()
	}
}
