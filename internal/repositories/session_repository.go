package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"registrar/internal/models"
)

// PublicSessionRepository: привязка registrationId <-> sessionToken (одна на заявку).
type PublicSessionRepository interface {
	Save(ctx context.Context, s *models.PublicSession) error
	GetByRegistrationID(ctx context.Context, registrationID int64) (*models.PublicSession, error)
	Touch(ctx context.Context, registrationID int64, tokenHash string, lastSeen, expiresAt time.Time) error
	Delete(ctx context.Context, registrationID int64) error
}

type publicSessionRepository struct {
	DB *sql.DB
}

func NewPublicSessionRepository(db *sql.DB) PublicSessionRepository {
	return &publicSessionRepository{DB: db}
}

func (r *publicSessionRepository) Save(ctx context.Context, s *models.PublicSession) error {
	const q = `
		INSERT INTO public_sessions (registration_id, token_hash, access_token_hash, issued_at, last_seen_at, expires_at, absolute_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (registration_id) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
			access_token_hash = EXCLUDED.access_token_hash,
			issued_at = EXCLUDED.issued_at,
			last_seen_at = EXCLUDED.last_seen_at,
			expires_at = EXCLUDED.expires_at,
			absolute_expires_at = EXCLUDED.absolute_expires_at
	`
	if _, err := r.DB.ExecContext(ctx, q,
		s.RegistrationID, s.TokenHash, s.AccessTokenHash, s.IssuedAt, s.LastSeenAt, s.ExpiresAt, s.AbsoluteExpiresAt,
	); err != nil {
		return fmt.Errorf("save public session: %w", err)
	}
	return nil
}

func (r *publicSessionRepository) GetByRegistrationID(ctx context.Context, registrationID int64) (*models.PublicSession, error) {
	const q = `
		SELECT registration_id, token_hash, access_token_hash, issued_at, last_seen_at, expires_at, absolute_expires_at
		FROM public_sessions
		WHERE registration_id = $1
	`
	var s models.PublicSession
	err := r.DB.QueryRowContext(ctx, q, registrationID).Scan(
		&s.RegistrationID, &s.TokenHash, &s.AccessTokenHash, &s.IssuedAt, &s.LastSeenAt, &s.ExpiresAt, &s.AbsoluteExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get public session: %w", err)
	}
	s.IssuedAt = s.IssuedAt.UTC()
	s.LastSeenAt = s.LastSeenAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	s.AbsoluteExpiresAt = s.AbsoluteExpiresAt.UTC()
	return &s, nil
}

// Touch продлевает только ту сессию, которую проверяли: перевыпущенную не трогаем.
func (r *publicSessionRepository) Touch(ctx context.Context, registrationID int64, tokenHash string, lastSeen, expiresAt time.Time) error {
	const q = `UPDATE public_sessions SET last_seen_at = $1, expires_at = $2 WHERE registration_id = $3 AND token_hash = $4`
	if _, err := r.DB.ExecContext(ctx, q, lastSeen, expiresAt, registrationID, tokenHash); err != nil {
		return fmt.Errorf("touch public session: %w", err)
	}
	return nil
}

func (r *publicSessionRepository) Delete(ctx context.Context, registrationID int64) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM public_sessions WHERE registration_id = $1`, registrationID); err != nil {
		return fmt.Errorf("delete public session: %w", err)
	}
	return nil
}

// InMemoryPublicSessionRepository: для тестов и запуска без БД/Redis.
type InMemoryPublicSessionRepository struct {
	mu       sync.Mutex
	sessions map[int64]models.PublicSession
}

func NewInMemoryPublicSessionRepository() *InMemoryPublicSessionRepository {
	return &InMemoryPublicSessionRepository{sessions: make(map[int64]models.PublicSession)}
}

func (r *InMemoryPublicSessionRepository) Save(ctx context.Context, s *models.PublicSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.RegistrationID] = *s
	return nil
}

func (r *InMemoryPublicSessionRepository) GetByRegistrationID(ctx context.Context, registrationID int64) (*models.PublicSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[registrationID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *InMemoryPublicSessionRepository) Touch(ctx context.Context, registrationID int64, tokenHash string, lastSeen, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[registrationID]
	if !ok || s.TokenHash != tokenHash {
		return nil
	}
	s.LastSeenAt = lastSeen
	s.ExpiresAt = expiresAt
	r.sessions[registrationID] = s
	return nil
}

func (r *InMemoryPublicSessionRepository) Delete(ctx context.Context, registrationID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, registrationID)
	return nil
}
