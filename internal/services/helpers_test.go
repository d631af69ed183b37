package services

import (
	"context"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"registrar/internal/models"
	"registrar/internal/repositories"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockNotifier struct {
	mock.Mock
	mu   sync.Mutex
	sent []string
}

func (m *mockNotifier) SendSMS(ctx context.Context, phone, message string) error {
	m.mu.Lock()
	m.sent = append(m.sent, message)
	m.mu.Unlock()
	return m.Called(ctx, phone, message).Error(0)
}

func (m *mockNotifier) SendEmail(ctx context.Context, to, subject, html string) error {
	return m.Called(ctx, to, subject, html).Error(0)
}

var codeRe = regexp.MustCompile(`\b\d{6}\b`)

// lastCode: код из последнего отправленного SMS.
func (m *mockNotifier) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no sms sent")
	code := codeRe.FindString(m.sent[len(m.sent)-1])
	require.NotEmpty(t, code)
	return code
}

type mockAlerter struct {
	mock.Mock
}

func (m *mockAlerter) LockoutAlert(ctx context.Context, reg *models.Registration, attempts int) {
	m.Called(reg.ID, attempts)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// testEnv: полный набор сервисов поверх in-memory хранилищ.
type testEnv struct {
	clock        *fakeClock
	repo         *repositories.InMemoryRegistrationRepository
	sessionStore *repositories.InMemoryPublicSessionRepository
	notifier     *mockNotifier
	alerter      *mockAlerter

	access        *AccessTokenService
	codes         *VerificationCodeService
	sessions      *SessionTokenService
	public        *PublicAccessService
	registrations *RegistrationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		clock:        newFakeClock(),
		repo:         repositories.NewInMemoryRegistrationRepository(),
		sessionStore: repositories.NewInMemoryPublicSessionRepository(),
		notifier:     &mockNotifier{},
		alerter:      &mockAlerter{},
	}
	log := quietLogger()
	e.access = NewAccessTokenService(AccessTokenDeps{
		Repo:     e.repo,
		Sessions: e.sessionStore,
		Notifier: e.notifier,
		Clock:    e.clock,
		Log:      log,
	}, "https://inscriptions.example.fr/", 7*24*time.Hour, 24*time.Hour)
	e.codes = NewVerificationCodeService(10*time.Minute, 5, BcryptCodeHasher{Cost: bcrypt.MinCost})
	e.sessions = NewSessionTokenService(e.sessionStore, e.clock, log, 30*time.Minute, 2*time.Hour)
	e.public = NewPublicAccessService(PublicAccessDeps{
		Repo:     e.repo,
		Access:   e.access,
		Codes:    e.codes,
		Sessions: e.sessions,
		Notifier: e.notifier,
		Alerter:  e.alerter,
		Clock:    e.clock,
		Log:      log,
	}, "https://inscriptions.example.fr")
	e.registrations = NewRegistrationService(e.repo, e.access, log)
	return e
}

// seed создаёт заявку с действующей ссылкой доступа.
func (e *testEnv) seed(t *testing.T, phone string) (*models.Registration, string) {
	t.Helper()
	token := "tok-" + phone + "-" + e.clock.Now().Format("150405.000000000")
	expiry := e.clock.Now().Add(7 * 24 * time.Hour)
	reg := &models.Registration{
		OrganizationID:    1,
		FirstName:         "Amélie",
		LastName:          "Poulain",
		Email:             "amelie@example.fr",
		Phone:             phone,
		Status:            models.RegistrationStatusDraft,
		AccessToken:       &token,
		AccessTokenExpiry: &expiry,
	}
	require.NoError(t, e.repo.Create(context.Background(), reg))
	return reg, token
}

func (e *testEnv) stored(t *testing.T, id int64) *models.Registration {
	t.Helper()
	reg, err := e.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, reg)
	return reg
}

// fixedCodes подменяет генератор: коды выдаются по очереди.
func fixedCodes(codes ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}
