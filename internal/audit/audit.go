// Package audit registra el trail de intentos de connect: quién intentó
// entrar, con qué resultado y por qué. Va al log estructurado como evento
// propio; un sink externo (DB, SIEM) puede colgarse después del mismo punto.
package audit

import (
	"context"
	"time"

	"github.com/rotterdam-cs/portal-connect/internal/observability/logger"
)

// Event es un evento de auditoría del flujo connect.
type Event struct {
	// Action: "connect.bound", "connect.rejected", "connect.disabled",
	// "connect.error".
	Action string

	TenantID  string
	AccountID string // vacío si el intento no resolvió cuenta

	// Reason diagnostica un rechazo (no_token, domain_not_allowed, ...).
	Reason string

	Created bool
}

// Record emite el evento. Nunca falla ni bloquea el flujo que lo llama.
func Record(ctx context.Context, ev Event) {
	logger.From(ctx).Info("audit",
		logger.String("action", ev.Action),
		logger.TenantID(ev.TenantID),
		logger.UserID(ev.AccountID),
		logger.String("reason", ev.Reason),
		logger.Bool("created", ev.Created),
		logger.String("at", time.Now().UTC().Format(time.RFC3339Nano)),
	)
}
