package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"registrar/internal/metrics"
	"registrar/internal/models"
	"registrar/internal/repositories"
	"registrar/internal/utils"
)

// AccessTokenService валидирует ссылку доступа и выпускает новые по запросу сотрудника.
type AccessTokenService struct {
	repo     repositories.RegistrationRepository
	sessions repositories.PublicSessionRepository
	notifier Notifier
	clock    Clock
	log      *logrus.Logger
	metrics  *metrics.Metrics

	FrontendBaseURL string
	InitialTTL      time.Duration
	ReminderTTL     time.Duration
}

type AccessTokenDeps struct {
	Repo     repositories.RegistrationRepository
	Sessions repositories.PublicSessionRepository
	Notifier Notifier
	Clock    Clock
	Log      *logrus.Logger
	Metrics  *metrics.Metrics
}

func NewAccessTokenService(d AccessTokenDeps, frontendBaseURL string, initialTTL, reminderTTL time.Duration) *AccessTokenService {
	if d.Clock == nil {
		d.Clock = RealClock{}
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &AccessTokenService{
		repo:            d.Repo,
		sessions:        d.Sessions,
		notifier:        d.Notifier,
		clock:           d.Clock,
		log:             d.Log,
		metrics:         d.Metrics,
		FrontendBaseURL: strings.TrimRight(frontendBaseURL, "/"),
		InitialTTL:      initialTTL,
		ReminderTTL:     reminderTTL,
	}
}

// Validate: ErrAccessTokenNotFound / ErrAccessTokenExpired либо заявка. Ничего не пишет.
func (s *AccessTokenService) Validate(ctx context.Context, token string) (*models.Registration, error) {
	if token == "" {
		return nil, ErrAccessTokenNotFound
	}
	reg, err := s.repo.GetByAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrAccessTokenNotFound
	}
	if err := s.Check(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Check: то же правило срока, для повторной проверки под блокировкой строки.
func (s *AccessTokenService) Check(reg *models.Registration) error {
	if reg.AccessTokenExpired(s.clock.Now()) {
		return ErrAccessTokenExpired
	}
	return nil
}

func (s *AccessTokenService) TTLFor(purpose models.AccessLinkPurpose) (time.Duration, error) {
	switch purpose {
	case models.AccessLinkInitial, "":
		return s.InitialTTL, nil
	case models.AccessLinkReminder:
		return s.ReminderTTL, nil
	}
	return 0, fmt.Errorf("%w: unknown access link purpose %q", ErrInvalidInput, purpose)
}

func (s *AccessTokenService) AccessURL(token string) string {
	return s.FrontendBaseURL + "/registration-access/" + token
}

// IssueLink выпускает новый accessToken. Прежний токен, код и сессия перестают действовать.
func (s *AccessTokenService) IssueLink(ctx context.Context, registrationID int64, purpose models.AccessLinkPurpose, sendEmail bool) (*models.AccessLink, error) {
	if purpose == "" {
		purpose = models.AccessLinkInitial
	}
	ttl, err := s.TTLFor(purpose)
	if err != nil {
		return nil, err
	}
	token, err := utils.NewURLToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	expires := s.clock.Now().Add(ttl)

	reg, err := s.repo.UpdateByID(ctx, registrationID, func(reg *models.Registration) (bool, error) {
		reg.AccessToken = &token
		reg.AccessTokenExpiry = &expires
		reg.ClearVerification()
		return true, nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}

	if s.sessions != nil {
		if err := s.sessions.Delete(ctx, registrationID); err != nil {
			s.log.WithError(err).WithField("registration_id", registrationID).Warn("[access][link] session cleanup failed")
		}
	}

	link := &models.AccessLink{
		RegistrationID: reg.ID,
		Purpose:        purpose,
		URL:            s.AccessURL(token),
		ExpiresAt:      expires,
	}
	if sendEmail && reg.Email != "" && s.notifier != nil {
		subject, body := AccessLinkEmail(reg.FirstName, link.URL, expires)
		link.EmailSent = s.notifier.SendEmail(ctx, reg.Email, subject, body) == nil
	}

	s.metrics.AccessLinkIssued(string(purpose))
	s.log.WithFields(logrus.Fields{
		"registration_id": reg.ID,
		"purpose":         purpose,
		"email_sent":      link.EmailSent,
	}).Info("[access][link] issued")
	return link, nil
}
