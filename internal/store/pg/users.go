// Package pg implementa connect.UserStore sobre PostgreSQL con pgxpool.
package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rotterdam-cs/portal-connect/internal/connect"
)

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// NewPool abre un pgxpool con los settings dados.
func NewPool(ctx context.Context, dsn string, maxConns int, connMaxLifetime time.Duration) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	if connMaxLifetime > 0 {
		cfg.MaxConnLifetime = connMaxLifetime
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

const accountColumns = `
	id, tenant_id, email, first_name, last_name, male,
	email_verified, password_reset, agreed_terms,
	screen_name, locale,
	birthday_month, birthday_day, birthday_year,
	reminder_question, reminder_answer, job_title, social`

func scanAccount(row pgx.Row) (*connect.LocalAccount, error) {
	var a connect.LocalAccount
	var social []byte
	err := row.Scan(
		&a.ID, &a.TenantID, &a.Email, &a.FirstName, &a.LastName, &a.Male,
		&a.EmailVerified, &a.PasswordReset, &a.AgreedToTerms,
		&a.ScreenName, &a.Locale,
		&a.BirthdayMonth, &a.BirthdayDay, &a.BirthdayYear,
		&a.ReminderQuestion, &a.ReminderAnswer, &a.JobTitle, &social,
	)
	if err != nil {
		return nil, err
	}
	if len(social) > 0 {
		_ = json.Unmarshal(social, &a.Social)
	}
	return &a, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, tenantID, email string) (*connect.LocalAccount, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		  FROM portal_user
		 WHERE tenant_id = $1 AND email = $2`, tenantID, email)
	a, err := scanAccount(row)
	if err == pgx.ErrNoRows {
		return nil, connect.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select portal_user: %w", err)
	}
	return a, nil
}

func (s *UserStore) CreateAccount(ctx context.Context, tenantID string, n connect.NewAccount) (*connect.LocalAccount, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO portal_user (
			tenant_id, email, first_name, last_name, male,
			email_verified, password_reset, agreed_terms,
			screen_name, password_hash, locale,
			birthday_month, birthday_day, birthday_year,
			reminder_question, reminder_answer, social
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,'{}'::jsonb)
		RETURNING `+accountColumns,
		tenantID, n.Email, n.FirstName, n.LastName, n.Male,
		n.EmailVerified, n.PasswordReset, n.AgreedToTerms,
		n.ScreenName, n.PasswordHash, n.Locale,
		n.BirthdayMonth, n.BirthdayDay, n.BirthdayYear,
		n.ReminderQuestion, n.ReminderAnswer,
	)
	a, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("insert portal_user: %w", err)
	}
	return a, nil
}

// UpdateAccount persiste los campos sincronizables. El email NO se toca acá:
// los cambios de dirección pasan por UpdateEmailAddress.
func (s *UserStore) UpdateAccount(ctx context.Context, a *connect.LocalAccount) error {
	social, err := json.Marshal(a.Social)
	if err != nil {
		return fmt.Errorf("marshal social: %w", err)
	}
	if a.Social == nil {
		social = []byte("{}")
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE portal_user
		   SET first_name = $2, last_name = $3, male = $4,
		       screen_name = $5, locale = $6,
		       birthday_month = $7, birthday_day = $8, birthday_year = $9,
		       reminder_question = $10, reminder_answer = $11,
		       agreed_terms = $12, job_title = $13, social = $14,
		       updated_at = now()
		 WHERE id = $1`,
		a.ID, a.FirstName, a.LastName, a.Male,
		a.ScreenName, a.Locale,
		a.BirthdayMonth, a.BirthdayDay, a.BirthdayYear,
		a.ReminderQuestion, a.ReminderAnswer,
		a.AgreedToTerms, a.JobTitle, social,
	)
	if err != nil {
		return fmt.Errorf("update portal_user: %w", err)
	}
	return nil
}

func (s *UserStore) UpdateEmailAddress(ctx context.Context, accountID, email string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE portal_user SET email = $2, updated_at = now() WHERE id = $1`,
		accountID, email)
	if err != nil {
		return fmt.Errorf("update email: %w", err)
	}
	return nil
}

func (s *UserStore) UpdateEmailVerified(ctx context.Context, accountID string, verified bool) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE portal_user SET email_verified = $2, updated_at = now() WHERE id = $1`,
		accountID, verified)
	if err != nil {
		return fmt.Errorf("update email_verified: %w", err)
	}
	return nil
}

func (s *UserStore) UpdatePasswordReset(ctx context.Context, accountID string, reset bool) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE portal_user SET password_reset = $2, updated_at = now() WHERE id = $1`,
		accountID, reset)
	if err != nil {
		return fmt.Errorf("update password_reset: %w", err)
	}
	return nil
}

func (s *UserStore) UpdateLastLogin(ctx context.Context, accountID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE portal_user SET last_login_at = now() WHERE id = $1`,
		accountID)
	if err != nil {
		return fmt.Errorf("update last_login: %w", err)
	}
	return nil
}

func (s *UserStore) UpdatePortrait(ctx context.Context, accountID string, image []byte) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE portal_user SET portrait = $2, updated_at = now() WHERE id = $1`,
		accountID, image)
	if err != nil {
		return fmt.Errorf("update portrait: %w", err)
	}
	return nil
}
