package tenant

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore lee tenant settings desde Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

func (s *PGStore) Settings(ctx context.Context, tenantID string) (*Settings, error) {
	out := &Settings{TenantID: tenantID}

	err := s.Pool.QueryRow(ctx, `
		SELECT sso_enabled, verified_email_required,
		       COALESCE(google_client_id, ''), COALESCE(google_client_secret, '')
		  FROM tenant_settings
		 WHERE tenant_id = $1`, tenantID,
	).Scan(&out.SSOEnabled, &out.VerifiedEmailRequired, &out.GoogleClientID, &out.GoogleClientSecret)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
		}
		return nil, fmt.Errorf("select tenant_settings: %w", err)
	}

	// Allowlist aparte: orden por posición.
	rows, err := s.Pool.Query(ctx, `
		SELECT domain FROM tenant_allowed_domain
		 WHERE tenant_id = $1
		 ORDER BY position`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("select tenant_allowed_domain: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan allowed domain: %w", err)
		}
		out.AllowedDomains = append(out.AllowedDomains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allowed domains: %w", err)
	}

	return out, nil
}
