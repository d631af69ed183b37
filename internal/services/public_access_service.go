package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"registrar/internal/metrics"
	"registrar/internal/models"
	"registrar/internal/repositories"
	"registrar/internal/utils"
)

var errNotEditable = errors.New("registration is not editable")

// PublicAccessService: протокол публичного доступа:
// request-code -> verify-code -> чтение/обновление заявки по sessionToken.
type PublicAccessService struct {
	repo     repositories.RegistrationRepository
	access   *AccessTokenService
	codes    *VerificationCodeService
	sessions *SessionTokenService
	notifier Notifier
	alerter  LockoutAlerter
	clock    Clock
	log      *logrus.Logger
	metrics  *metrics.Metrics

	FrontendBaseURL string
}

type PublicAccessDeps struct {
	Repo     repositories.RegistrationRepository
	Access   *AccessTokenService
	Codes    *VerificationCodeService
	Sessions *SessionTokenService
	Notifier Notifier
	Alerter  LockoutAlerter
	Clock    Clock
	Log      *logrus.Logger
	Metrics  *metrics.Metrics
}

func NewPublicAccessService(d PublicAccessDeps, frontendBaseURL string) *PublicAccessService {
	if d.Clock == nil {
		d.Clock = RealClock{}
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &PublicAccessService{
		repo:            d.Repo,
		access:          d.Access,
		codes:           d.Codes,
		sessions:        d.Sessions,
		notifier:        d.Notifier,
		alerter:         d.Alerter,
		clock:           d.Clock,
		log:             d.Log,
		metrics:         d.Metrics,
		FrontendBaseURL: strings.TrimRight(frontendBaseURL, "/"),
	}
}

// accessOutcome переводит ожидаемые ошибки в исходы; прочие ошибки возвращаются как есть.
func accessOutcome(err error) (models.AccessOutcome, bool) {
	switch {
	case errors.Is(err, repositories.ErrNotFound), errors.Is(err, ErrAccessTokenNotFound), errors.Is(err, ErrRegistrationNotFound):
		return models.OutcomeNotFound, true
	case errors.Is(err, ErrAccessTokenExpired):
		return models.OutcomeExpired, true
	case errors.Is(err, ErrSessionInvalid):
		return models.OutcomeUnauthorized, true
	case errors.Is(err, errNotEditable):
		return models.OutcomeNotEditable, true
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrPhoneMissing):
		return models.OutcomeInvalid, true
	}
	return "", false
}

// RequestCode выпускает новый код под блокировкой строки, затем отправляет SMS вне её.
// Код считается выданным даже если SMS не ушло.
func (s *PublicAccessService) RequestCode(ctx context.Context, accessToken string) (*models.RequestCodeResult, error) {
	if accessToken == "" {
		s.metrics.CodeRequested(string(models.OutcomeNotFound))
		return &models.RequestCodeResult{Outcome: models.OutcomeNotFound}, nil
	}

	var code, phone string
	reg, err := s.repo.UpdateByAccessToken(ctx, accessToken, func(reg *models.Registration) (bool, error) {
		if err := s.access.Check(reg); err != nil {
			return false, err
		}
		normalized, ok := utils.NormalizePhone(reg.Phone)
		if !ok {
			return false, ErrPhoneMissing
		}
		c, err := s.codes.Issue(reg, s.clock.Now())
		if err != nil {
			return false, err
		}
		code, phone = c, normalized
		return true, nil
	})
	if err != nil {
		outcome, ok := accessOutcome(err)
		if !ok {
			return nil, fmt.Errorf("request code: %w", err)
		}
		s.metrics.CodeRequested(string(outcome))
		s.log.WithField("outcome", outcome).Info("[public][request-code] refused")
		return &models.RequestCodeResult{
			Outcome:             outcome,
			RequiresPhoneUpdate: errors.Is(err, ErrPhoneMissing),
		}, nil
	}

	res := &models.RequestCodeResult{
		Outcome:          models.OutcomeOK,
		PhoneMasked:      utils.MaskPhone(phone),
		ExpiresInMinutes: s.codes.ExpiresInMinutes(),
	}
	if s.notifier != nil {
		msg := fmt.Sprintf("Votre code de vérification : %s. Il est valable %d minutes.", code, res.ExpiresInMinutes)
		res.SMSDelivered = s.notifier.SendSMS(ctx, phone, msg) == nil
	}

	s.metrics.CodeRequested(string(models.OutcomeOK))
	s.log.WithFields(logrus.Fields{
		"registration_id": reg.ID,
		"phone":           res.PhoneMasked,
		"sms_delivered":   res.SMSDelivered,
	}).Info("[public][request-code] code issued")
	return res, nil
}

// VerifyCode: проверка лимита, инкремент и сравнение идут одной транзакцией по строке заявки.
// sessionToken выдаётся только при успехе в этом же вызове.
func (s *PublicAccessService) VerifyCode(ctx context.Context, accessToken, code string) (*models.VerifyCodeResult, error) {
	if _, err := s.access.Validate(ctx, accessToken); err != nil {
		outcome, ok := accessOutcome(err)
		if !ok {
			return nil, fmt.Errorf("verify code: %w", err)
		}
		s.metrics.CodeChecked(string(outcome))
		return &models.VerifyCodeResult{Outcome: outcome}, nil
	}
	// неверный формат не считается попыткой
	code = strings.TrimSpace(code)
	if !utils.IsNumericCode(code, codeDigits) {
		s.metrics.CodeChecked(string(models.OutcomeInvalid))
		return &models.VerifyCodeResult{Outcome: models.OutcomeInvalid}, nil
	}

	var check CodeCheck
	reg, err := s.repo.UpdateByAccessToken(ctx, accessToken, func(reg *models.Registration) (bool, error) {
		if err := s.access.Check(reg); err != nil {
			return false, err
		}
		check = s.codes.Check(reg, code, s.clock.Now())
		return check.Outcome != models.OutcomeLockedOut, nil
	})
	if err != nil {
		outcome, ok := accessOutcome(err)
		if !ok {
			return nil, fmt.Errorf("verify code: %w", err)
		}
		s.metrics.CodeChecked(string(outcome))
		return &models.VerifyCodeResult{Outcome: outcome}, nil
	}

	entry := s.log.WithFields(logrus.Fields{
		"registration_id": reg.ID,
		"outcome":         check.Outcome,
		"attempts":        check.Attempts,
	})
	s.metrics.CodeChecked(string(check.Outcome))
	if check.JustLocked {
		s.metrics.LockedOut()
		entry.Warn("[public][verify-code] attempts exhausted")
		if s.alerter != nil {
			s.alerter.LockoutAlert(ctx, reg, check.Attempts)
		}
	}

	res := &models.VerifyCodeResult{
		Outcome:           check.Outcome,
		RegistrationID:    reg.ID,
		AttemptsRemaining: check.AttemptsRemaining,
	}
	if check.Outcome != models.OutcomeOK {
		entry.Info("[public][verify-code] rejected")
		return res, nil
	}

	token, expiresAt, err := s.sessions.Issue(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	s.metrics.SessionIssued()
	res.SessionToken = token
	res.SessionExpiresAt = expiresAt
	res.RedirectURL = s.FrontendBaseURL + "/registration/" + strconv.FormatInt(reg.ID, 10)
	entry.Info("[public][verify-code] phone verified, session issued")
	return res, nil
}

// authorize: сначала сессия, потом заявка, потом привязка к текущему accessToken и его срок.
func (s *PublicAccessService) authorize(ctx context.Context, registrationID int64, sessionToken string) (*models.Registration, error) {
	sess, err := s.sessions.Validate(ctx, registrationID, sessionToken)
	if err != nil {
		return nil, err
	}
	reg, err := s.repo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrRegistrationNotFound
	}
	if !s.sessions.BoundTo(sess, reg) {
		return nil, ErrSessionInvalid
	}
	if err := s.access.Check(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *PublicAccessService) GetDetails(ctx context.Context, registrationID int64, sessionToken string) (*models.RecordResult, error) {
	reg, err := s.authorize(ctx, registrationID, sessionToken)
	if err != nil {
		return s.recordRefused("get", err)
	}
	s.metrics.RecordAccessed("get", string(models.OutcomeOK))
	return &models.RecordResult{
		Outcome:      models.OutcomeOK,
		Details:      models.NewPublicRegistrationDetails(reg),
		Registration: reg,
	}, nil
}

// UpdateRecord меняет только разрешённые поля и только пока статус редактируемый.
func (s *PublicAccessService) UpdateRecord(ctx context.Context, registrationID int64, sessionToken string, upd *models.PublicRegistrationUpdate) (*models.RecordResult, error) {
	current, err := s.authorize(ctx, registrationID, sessionToken)
	if err != nil {
		return s.recordRefused("update", err)
	}
	boundToken := *current.AccessToken

	normalized, err := normalizeUpdate(upd)
	if err != nil {
		s.metrics.RecordAccessed("update", string(models.OutcomeInvalid))
		return &models.RecordResult{Outcome: models.OutcomeInvalid, Reason: reasonOf(err)}, nil
	}

	reg, err := s.repo.UpdateByID(ctx, registrationID, func(reg *models.Registration) (bool, error) {
		// ссылку могли перевыпустить между authorize и блокировкой
		if reg.AccessToken == nil || *reg.AccessToken != boundToken {
			return false, ErrSessionInvalid
		}
		if err := s.access.Check(reg); err != nil {
			return false, err
		}
		if !reg.Status.Editable() {
			return false, errNotEditable
		}
		applyUpdate(reg, normalized)
		return true, nil
	})
	if err != nil {
		return s.recordRefused("update", err)
	}

	s.metrics.RecordAccessed("update", string(models.OutcomeOK))
	s.log.WithField("registration_id", reg.ID).Info("[public][update] registration updated")
	return &models.RecordResult{
		Outcome:      models.OutcomeOK,
		Details:      models.NewPublicRegistrationDetails(reg),
		Registration: reg,
	}, nil
}

func (s *PublicAccessService) recordRefused(op string, err error) (*models.RecordResult, error) {
	outcome, ok := accessOutcome(err)
	if !ok {
		return nil, fmt.Errorf("%s registration: %w", op, err)
	}
	s.metrics.RecordAccessed(op, string(outcome))
	return &models.RecordResult{Outcome: outcome}, nil
}

// Ограничения на поля, которые заявитель правит сам.
const (
	maxNameLen    = 100
	maxEmailLen   = 254
	maxAddressLen = 200
	maxPostalLen  = 20
	maxCityLen    = 100
	maxCountryLen = 100
	maxFormData   = 64 << 10
)

type fieldError struct {
	field string
}

func (e *fieldError) Error() string { return "invalid field " + e.field }
func (e *fieldError) Unwrap() error { return ErrInvalidInput }

func reasonOf(err error) string {
	var fe *fieldError
	if errors.As(err, &fe) {
		return fe.field
	}
	return ""
}

func normalizeUpdate(upd *models.PublicRegistrationUpdate) (*models.PublicRegistrationUpdate, error) {
	if upd == nil {
		return nil, &fieldError{field: "body"}
	}
	out := &models.PublicRegistrationUpdate{}

	text := func(field string, in *string, maxLen int, required bool) (*string, error) {
		if in == nil {
			return nil, nil
		}
		v := strings.TrimSpace(*in)
		if utf8.RuneCountInString(v) > maxLen || (required && v == "") {
			return nil, &fieldError{field: field}
		}
		return &v, nil
	}

	var err error
	if out.FirstName, err = text("firstName", upd.FirstName, maxNameLen, true); err != nil {
		return nil, err
	}
	if out.LastName, err = text("lastName", upd.LastName, maxNameLen, true); err != nil {
		return nil, err
	}
	if out.AddressLine, err = text("addressLine", upd.AddressLine, maxAddressLen, false); err != nil {
		return nil, err
	}
	if out.PostalCode, err = text("postalCode", upd.PostalCode, maxPostalLen, false); err != nil {
		return nil, err
	}
	if out.City, err = text("city", upd.City, maxCityLen, false); err != nil {
		return nil, err
	}
	if out.Country, err = text("country", upd.Country, maxCountryLen, false); err != nil {
		return nil, err
	}
	if out.Email, err = text("email", upd.Email, maxEmailLen, false); err != nil {
		return nil, err
	}
	if out.Email != nil && *out.Email != "" {
		addr, perr := mail.ParseAddress(*out.Email)
		if perr != nil || addr.Address != *out.Email {
			return nil, &fieldError{field: "email"}
		}
	}
	if upd.Phone != nil {
		p, ok := utils.NormalizePhone(*upd.Phone)
		if !ok {
			return nil, &fieldError{field: "phone"}
		}
		out.Phone = &p
	}
	if len(upd.FormData) > 0 && string(upd.FormData) != "null" {
		if len(upd.FormData) > maxFormData || !json.Valid(upd.FormData) || upd.FormData[0] != '{' {
			return nil, &fieldError{field: "formData"}
		}
		out.FormData = upd.FormData
	}
	return out, nil
}

func applyUpdate(reg *models.Registration, upd *models.PublicRegistrationUpdate) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&reg.FirstName, upd.FirstName)
	set(&reg.LastName, upd.LastName)
	set(&reg.Email, upd.Email)
	set(&reg.Phone, upd.Phone)
	set(&reg.AddressLine, upd.AddressLine)
	set(&reg.PostalCode, upd.PostalCode)
	set(&reg.City, upd.City)
	set(&reg.Country, upd.Country)
	if upd.FormData != nil {
		reg.FormData = append(json.RawMessage(nil), upd.FormData...)
	}
}
