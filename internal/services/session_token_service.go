package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"registrar/internal/models"
	"registrar/internal/repositories"
	"registrar/internal/utils"
)

// SessionTokenService выдаёт и проверяет sessionToken после подтверждения телефона.
// Срок жизни: скользящий IdleTTL, но не дольше MaxTTL от выдачи.
type SessionTokenService struct {
	repo    repositories.PublicSessionRepository
	clock   Clock
	log     *logrus.Logger
	IdleTTL time.Duration
	MaxTTL  time.Duration
}

func NewSessionTokenService(repo repositories.PublicSessionRepository, clock Clock, log *logrus.Logger, idleTTL, maxTTL time.Duration) *SessionTokenService {
	if clock == nil {
		clock = RealClock{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SessionTokenService{repo: repo, clock: clock, log: log, IdleTTL: idleTTL, MaxTTL: maxTTL}
}

// Issue перезаписывает прежнюю привязку заявки. Вызывать только сразу после успешной верификации.
func (s *SessionTokenService) Issue(ctx context.Context, reg *models.Registration) (string, time.Time, error) {
	if !reg.PhoneVerified || reg.AccessToken == nil {
		return "", time.Time{}, errors.New("session requires a verified phone and an access token")
	}
	token, err := utils.NewURLToken(32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate session token: %w", err)
	}
	now := s.clock.Now()
	sess := &models.PublicSession{
		RegistrationID:    reg.ID,
		TokenHash:         utils.HashToken(token),
		AccessTokenHash:   utils.HashToken(*reg.AccessToken),
		IssuedAt:          now,
		LastSeenAt:        now,
		ExpiresAt:         now.Add(s.IdleTTL),
		AbsoluteExpiresAt: now.Add(s.MaxTTL),
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return "", time.Time{}, err
	}
	return token, sess.Deadline(), nil
}

// Validate: токен должен совпадать с последним выданным для заявки и быть живым.
// При успехе срок продлевается.
func (s *SessionTokenService) Validate(ctx context.Context, registrationID int64, presented string) (*models.PublicSession, error) {
	if presented == "" {
		return nil, ErrSessionInvalid
	}
	sess, err := s.repo.GetByRegistrationID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if sess == nil || !utils.EqualHashes(sess.TokenHash, utils.HashToken(presented)) {
		return nil, ErrSessionInvalid
	}
	now := s.clock.Now()
	if sess.ExpiredAt(now) {
		return nil, ErrSessionInvalid
	}

	next := now.Add(s.IdleTTL)
	if next.After(sess.AbsoluteExpiresAt) {
		next = sess.AbsoluteExpiresAt
	}
	if err := s.repo.Touch(ctx, registrationID, sess.TokenHash, now, next); err != nil {
		s.log.WithError(err).WithField("registration_id", registrationID).Warn("[public][session] touch failed")
	} else {
		sess.LastSeenAt = now
		sess.ExpiresAt = next
	}
	return sess, nil
}

// BoundTo: сессия выдана под текущий accessToken заявки.
func (s *SessionTokenService) BoundTo(sess *models.PublicSession, reg *models.Registration) bool {
	if sess == nil || reg == nil || reg.AccessToken == nil || sess.RegistrationID != reg.ID {
		return false
	}
	return utils.EqualHashes(sess.AccessTokenHash, utils.HashToken(*reg.AccessToken))
}
