package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"registrar/internal/models"
)

type PublicAccessSuite struct {
	suite.Suite
	env   *testEnv
	ctx   context.Context
	reg   *models.Registration
	token string
}

func TestPublicAccessSuite(t *testing.T) {
	suite.Run(t, new(PublicAccessSuite))
}

func (s *PublicAccessSuite) SetupTest() {
	s.env = newTestEnv(s.T())
	s.env.codes.generate = fixedCodes("123456", "654321", "111111")
	s.env.notifier.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	s.env.alerter.On("LockoutAlert", mock.Anything, mock.Anything).Return().Maybe()
	s.ctx = context.Background()
	s.reg, s.token = s.env.seed(s.T(), "+33612345678")
}

func (s *PublicAccessSuite) requestCode() string {
	res, err := s.env.public.RequestCode(s.ctx, s.token)
	s.Require().NoError(err)
	s.Require().Equal(models.OutcomeOK, res.Outcome)
	return s.env.notifier.lastCode(s.T())
}

func (s *PublicAccessSuite) verify(code string) *models.VerifyCodeResult {
	res, err := s.env.public.VerifyCode(s.ctx, s.token, code)
	s.Require().NoError(err)
	return res
}

func (s *PublicAccessSuite) login() string {
	code := s.requestCode()
	res := s.verify(code)
	s.Require().Equal(models.OutcomeOK, res.Outcome)
	return res.SessionToken
}

// ---- RequestCode

func (s *PublicAccessSuite) TestRequestCodeSendsMaskedPhoneAndStoresCode() {
	res, err := s.env.public.RequestCode(s.ctx, s.token)
	s.Require().NoError(err)

	s.Equal(models.OutcomeOK, res.Outcome)
	s.Equal("+336******78", res.PhoneMasked)
	s.Equal(10, res.ExpiresInMinutes)
	s.True(res.SMSDelivered)

	code := s.env.notifier.lastCode(s.T())
	s.Equal("123456", code)
	s.env.notifier.AssertCalled(s.T(), "SendSMS", mock.Anything, "+33612345678", mock.Anything)

	stored := s.env.stored(s.T(), s.reg.ID)
	s.Require().NotNil(stored.VerificationCode)
	s.NotEqual(code, *stored.VerificationCode, "raw code must not be stored")
	s.Equal(s.env.clock.Now().Add(10*time.Minute), *stored.VerificationCodeExpiry)
	s.Zero(stored.VerificationAttempts)
}

func (s *PublicAccessSuite) TestRequestCodeUnknownOrEmptyToken() {
	for _, tok := range []string{"", "nope"} {
		res, err := s.env.public.RequestCode(s.ctx, tok)
		s.Require().NoError(err)
		s.Equal(models.OutcomeNotFound, res.Outcome)
	}
	s.env.notifier.AssertNotCalled(s.T(), "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

func (s *PublicAccessSuite) TestRequestCodeWithoutPhoneRequiresUpdate() {
	_, err := s.env.repo.UpdateByID(s.ctx, s.reg.ID, func(r *models.Registration) (bool, error) {
		r.Phone = ""
		return true, nil
	})
	s.Require().NoError(err)

	res, err := s.env.public.RequestCode(s.ctx, s.token)
	s.Require().NoError(err)
	s.Equal(models.OutcomeInvalid, res.Outcome)
	s.True(res.RequiresPhoneUpdate)
	s.False(s.env.stored(s.T(), s.reg.ID).HasPendingCode())
}

func (s *PublicAccessSuite) TestRequestCodeDeliveryFailureKeepsCode() {
	n := &mockNotifier{}
	n.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("provider down"))
	s.env.public.notifier = n

	res, err := s.env.public.RequestCode(s.ctx, s.token)
	s.Require().NoError(err)
	s.Equal(models.OutcomeOK, res.Outcome)
	s.False(res.SMSDelivered)

	code := n.lastCode(s.T())
	s.Equal(models.OutcomeOK, s.verify(code).Outcome)
}

// ---- VerifyCode

func (s *PublicAccessSuite) TestVerifyWrongCodeReportsRemaining() {
	s.requestCode()
	res := s.verify("000000")
	s.Equal(models.OutcomeWrongCode, res.Outcome)
	s.Equal(4, res.AttemptsRemaining)
	s.Empty(res.SessionToken)
}

func (s *PublicAccessSuite) TestVerifyFirstAttemptCorrect() {
	code := s.requestCode()
	res := s.verify(code)

	s.Equal(models.OutcomeOK, res.Outcome)
	s.NotEmpty(res.SessionToken)
	s.Equal(s.reg.ID, res.RegistrationID)
	s.Equal("https://inscriptions.example.fr/registration/1", res.RedirectURL)
	s.Equal(s.env.clock.Now().Add(30*time.Minute), res.SessionExpiresAt)

	stored := s.env.stored(s.T(), s.reg.ID)
	s.True(stored.PhoneVerified)
	s.Nil(stored.VerificationCode)
	s.Nil(stored.VerificationCodeExpiry)
}

func (s *PublicAccessSuite) TestRetriesAfterVerificationNeverLock() {
	s.login()
	for i := 0; i < 7; i++ {
		res := s.verify("000000")
		s.Equal(models.OutcomeInvalid, res.Outcome)
		s.Empty(res.SessionToken)
	}

	stored := s.env.stored(s.T(), s.reg.ID)
	s.True(stored.PhoneVerified)
	s.Equal(1, stored.VerificationAttempts)
	s.env.alerter.AssertNotCalled(s.T(), "LockoutAlert", mock.Anything, mock.Anything)
}

func (s *PublicAccessSuite) TestAttemptCeiling() {
	code := s.requestCode()
	for i := 0; i < 5; i++ {
		s.Equal(models.OutcomeWrongCode, s.verify("000000").Outcome)
	}

	res := s.verify(code)
	s.Equal(models.OutcomeLockedOut, res.Outcome)
	s.Empty(res.SessionToken)

	stored := s.env.stored(s.T(), s.reg.ID)
	s.Equal(5, stored.VerificationAttempts)
	s.False(stored.PhoneVerified)
	s.env.alerter.AssertNumberOfCalls(s.T(), "LockoutAlert", 1)
	s.env.alerter.AssertCalled(s.T(), "LockoutAlert", s.reg.ID, 5)
}

func (s *PublicAccessSuite) TestExpiredCodeIsRejected() {
	code := s.requestCode()
	s.env.clock.Advance(10*time.Minute + time.Second)

	res := s.verify(code)
	s.Equal(models.OutcomeCodeExpired, res.Outcome)
	s.Equal(4, res.AttemptsRemaining)
	s.False(s.env.stored(s.T(), s.reg.ID).PhoneVerified)
}

func (s *PublicAccessSuite) TestSecondRequestInvalidatesFirstCode() {
	first := s.requestCode()
	second := s.requestCode()
	s.Require().NotEqual(first, second)

	s.Equal(models.OutcomeWrongCode, s.verify(first).Outcome)
	s.Equal(models.OutcomeOK, s.verify(second).Outcome)
}

func (s *PublicAccessSuite) TestRequestCodeAfterLockoutRecovers() {
	s.requestCode()
	for i := 0; i < 6; i++ {
		s.verify("000000")
	}
	s.Equal(5, s.env.stored(s.T(), s.reg.ID).VerificationAttempts)

	code := s.requestCode()
	s.Zero(s.env.stored(s.T(), s.reg.ID).VerificationAttempts)
	s.Equal(models.OutcomeOK, s.verify(code).Outcome)
}

func (s *PublicAccessSuite) TestMalformedCodeDoesNotCountAttempt() {
	s.requestCode()
	for _, c := range []string{"12345", "1234567", "12ab56", " "} {
		s.Equal(models.OutcomeInvalid, s.verify(c).Outcome, c)
	}
	s.Zero(s.env.stored(s.T(), s.reg.ID).VerificationAttempts)
}

func (s *PublicAccessSuite) TestVerifyWithoutRequestCountsAttempt() {
	res := s.verify("123456")
	s.Equal(models.OutcomeInvalid, res.Outcome)
	s.Equal(s.reg.ID, res.RegistrationID)
	s.Equal(1, s.env.stored(s.T(), s.reg.ID).VerificationAttempts)
}

func (s *PublicAccessSuite) TestVerifyUnknownToken() {
	res, err := s.env.public.VerifyCode(s.ctx, "nope", "123456")
	s.Require().NoError(err)
	s.Equal(models.OutcomeNotFound, res.Outcome)
}

func (s *PublicAccessSuite) TestCancelledVerifyChangesNothing() {
	s.requestCode()
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.env.public.VerifyCode(ctx, s.token, "000000")
	s.Require().ErrorIs(err, context.Canceled)
	s.Zero(s.env.stored(s.T(), s.reg.ID).VerificationAttempts)
}

// ---- access token expiry gates every operation

func (s *PublicAccessSuite) TestExpiredAccessTokenGatesEverything() {
	session := s.login()
	code := s.requestCode()

	_, err := s.env.repo.UpdateByID(s.ctx, s.reg.ID, func(r *models.Registration) (bool, error) {
		past := s.env.clock.Now().Add(-time.Second)
		r.AccessTokenExpiry = &past
		return true, nil
	})
	s.Require().NoError(err)
	before := s.env.stored(s.T(), s.reg.ID)

	rc, err := s.env.public.RequestCode(s.ctx, s.token)
	s.Require().NoError(err)
	s.Equal(models.OutcomeExpired, rc.Outcome)

	vc, err := s.env.public.VerifyCode(s.ctx, s.token, code)
	s.Require().NoError(err)
	s.Equal(models.OutcomeExpired, vc.Outcome)

	get, err := s.env.public.GetDetails(s.ctx, s.reg.ID, session)
	s.Require().NoError(err)
	s.Equal(models.OutcomeExpired, get.Outcome)

	first := "Autre"
	upd, err := s.env.public.UpdateRecord(s.ctx, s.reg.ID, session, &models.PublicRegistrationUpdate{FirstName: &first})
	s.Require().NoError(err)
	s.Equal(models.OutcomeExpired, upd.Outcome)

	s.Equal(before, s.env.stored(s.T(), s.reg.ID))
}

// ---- session gating

func (s *PublicAccessSuite) TestSessionGating() {
	session := s.login()

	ok, err := s.env.public.GetDetails(s.ctx, s.reg.ID, session)
	s.Require().NoError(err)
	s.Equal(models.OutcomeOK, ok.Outcome)
	s.Equal("Amélie", ok.Details.FirstName)
	s.True(ok.Details.PhoneVerified)
	s.True(ok.Details.Editable)

	for _, bad := range []string{"", "wrong", session + "x"} {
		res, err := s.env.public.GetDetails(s.ctx, s.reg.ID, bad)
		s.Require().NoError(err)
		s.Equal(models.OutcomeUnauthorized, res.Outcome, bad)
	}

	// сессия другой заявки не подходит
	other, _ := s.env.seed(s.T(), "+33698765432")
	res, err := s.env.public.GetDetails(s.ctx, other.ID, session)
	s.Require().NoError(err)
	s.Equal(models.OutcomeUnauthorized, res.Outcome)
}

func (s *PublicAccessSuite) TestNewVerificationReplacesSession() {
	old := s.login()
	fresh := s.login()
	s.Require().NotEqual(old, fresh)

	res, err := s.env.public.GetDetails(s.ctx, s.reg.ID, old)
	s.Require().NoError(err)
	s.Equal(models.OutcomeUnauthorized, res.Outcome)

	res, err = s.env.public.GetDetails(s.ctx, s.reg.ID, fresh)
	s.Require().NoError(err)
	s.Equal(models.OutcomeOK, res.Outcome)
}

func (s *PublicAccessSuite) TestSessionSlidesButHasAbsoluteLimit() {
	session := s.login()
	get := func() models.AccessOutcome {
		res, err := s.env.public.GetDetails(s.ctx, s.reg.ID, session)
		s.Require().NoError(err)
		return res.Outcome
	}

	// активность каждые 25 минут продлевает сессию
	for i := 0; i < 4; i++ {
		s.env.clock.Advance(25 * time.Minute)
		s.Equal(models.OutcomeOK, get(), "step %d", i)
	}
	// 100 минут от выдачи; абсолютный предел 2 часа
	s.env.clock.Advance(20 * time.Minute)
	s.Equal(models.OutcomeOK, get())
	s.env.clock.Advance(1 * time.Minute)
	s.Equal(models.OutcomeUnauthorized, get())
}

func (s *PublicAccessSuite) TestIdleSessionExpires() {
	session := s.login()
	s.env.clock.Advance(31 * time.Minute)

	res, err := s.env.public.GetDetails(s.ctx, s.reg.ID, session)
	s.Require().NoError(err)
	s.Equal(models.OutcomeUnauthorized, res.Outcome)
}

func (s *PublicAccessSuite) TestReissuedAccessLinkRevokesSession() {
	session := s.login()
	_, err := s.env.access.IssueLink(s.ctx, s.reg.ID, models.AccessLinkReminder, false)
	s.Require().NoError(err)

	res, err := s.env.public.GetDetails(s.ctx, s.reg.ID, session)
	s.Require().NoError(err)
	s.Equal(models.OutcomeUnauthorized, res.Outcome)
}

// ---- UpdateRecord

func (s *PublicAccessSuite) TestUpdateRecordAppliesBoundedFields() {
	session := s.login()
	first, city, phone := "  Nino ", "Lyon", "06 98 76 54 32"
	res, err := s.env.public.UpdateRecord(s.ctx, s.reg.ID, session, &models.PublicRegistrationUpdate{
		FirstName: &first,
		City:      &city,
		Phone:     &phone,
		FormData:  json.RawMessage(`{"niveau":"master"}`),
	})
	s.Require().NoError(err)
	s.Require().Equal(models.OutcomeOK, res.Outcome)

	stored := s.env.stored(s.T(), s.reg.ID)
	s.Equal("Nino", stored.FirstName)
	s.Equal("Poulain", stored.LastName)
	s.Equal("Lyon", stored.City)
	s.Equal("+33698765432", stored.Phone)
	s.JSONEq(`{"niveau":"master"}`, string(stored.FormData))
	s.True(stored.PhoneVerified)
}

func (s *PublicAccessSuite) TestUpdateRecordRejectsInvalidFields() {
	session := s.login()
	empty, badEmail, badPhone := " ", "not-an-email", "12"
	cases := []struct {
		upd    models.PublicRegistrationUpdate
		reason string
	}{
		{models.PublicRegistrationUpdate{FirstName: &empty}, "firstName"},
		{models.PublicRegistrationUpdate{Email: &badEmail}, "email"},
		{models.PublicRegistrationUpdate{Phone: &badPhone}, "phone"},
		{models.PublicRegistrationUpdate{FormData: json.RawMessage(`[1,2]`)}, "formData"},
	}
	for _, tc := range cases {
		res, err := s.env.public.UpdateRecord(s.ctx, s.reg.ID, session, &tc.upd)
		s.Require().NoError(err)
		s.Equal(models.OutcomeInvalid, res.Outcome, tc.reason)
		s.Equal(tc.reason, res.Reason)
	}
	s.Equal("Amélie", s.env.stored(s.T(), s.reg.ID).FirstName)
}

func (s *PublicAccessSuite) TestUpdateRecordNotEditableAfterValidation() {
	session := s.login()
	_, err := s.env.registrations.UpdateStatus(s.ctx, s.reg.ID, models.RegistrationStatusSubmitted)
	s.Require().NoError(err)
	_, err = s.env.registrations.UpdateStatus(s.ctx, s.reg.ID, models.RegistrationStatusValidated)
	s.Require().NoError(err)

	first := "Autre"
	res, err := s.env.public.UpdateRecord(s.ctx, s.reg.ID, session, &models.PublicRegistrationUpdate{FirstName: &first})
	s.Require().NoError(err)
	s.Equal(models.OutcomeNotEditable, res.Outcome)
	s.Equal("Amélie", s.env.stored(s.T(), s.reg.ID).FirstName)

	get, err := s.env.public.GetDetails(s.ctx, s.reg.ID, session)
	s.Require().NoError(err)
	s.False(get.Details.Editable)
}

func (s *PublicAccessSuite) TestUpdateRecordUnauthorized() {
	first := "Autre"
	res, err := s.env.public.UpdateRecord(s.ctx, s.reg.ID, "nope", &models.PublicRegistrationUpdate{FirstName: &first})
	s.Require().NoError(err)
	s.Equal(models.OutcomeUnauthorized, res.Outcome)
}

// ---- concurrency

func TestConcurrentWrongCodesNeverExceedCeiling(t *testing.T) {
	env := newTestEnv(t)
	env.codes.generate = fixedCodes("123456")
	env.notifier.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	env.alerter.On("LockoutAlert", mock.Anything, mock.Anything).Return()
	reg, token := env.seed(t, "+33612345678")

	_, err := env.public.RequestCode(context.Background(), token)
	require.NoError(t, err)

	const workers = 20
	outcomes := make(chan models.AccessOutcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.public.VerifyCode(context.Background(), token, "000000")
			if err == nil {
				outcomes <- res.Outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	counts := map[models.AccessOutcome]int{}
	for o := range outcomes {
		counts[o]++
	}
	require.Equal(t, 5, counts[models.OutcomeWrongCode])
	require.Equal(t, workers-5, counts[models.OutcomeLockedOut])
	require.Equal(t, 5, env.stored(t, reg.ID).VerificationAttempts)
	env.alerter.AssertNumberOfCalls(t, "LockoutAlert", 1)
}

func TestConcurrentCorrectCodeIssuesOneSession(t *testing.T) {
	env := newTestEnv(t)
	env.codes.generate = fixedCodes("123456")
	env.notifier.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	reg, token := env.seed(t, "+33612345678")

	_, err := env.public.RequestCode(context.Background(), token)
	require.NoError(t, err)

	const workers = 8
	outcomes := make(chan models.AccessOutcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.public.VerifyCode(context.Background(), token, "123456")
			if err == nil {
				outcomes <- res.Outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	counts := map[models.AccessOutcome]int{}
	for o := range outcomes {
		counts[o]++
	}
	require.Equal(t, 1, counts[models.OutcomeOK])
	require.Equal(t, workers-1, counts[models.OutcomeInvalid])
	stored := env.stored(t, reg.ID)
	require.True(t, stored.PhoneVerified)
	require.Equal(t, 1, stored.VerificationAttempts)
	env.alerter.AssertNotCalled(t, "LockoutAlert", mock.Anything, mock.Anything)
}
