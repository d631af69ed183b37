package services

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"registrar/internal/models"
	"registrar/internal/utils"
)

const codeDigits = 6

// CodeHasher: как хранится и сверяется код. Сверка должна быть constant-time по коду.
type CodeHasher interface {
	Hash(code string) (string, error)
	Matches(hash, code string) bool
}

type BcryptCodeHasher struct {
	Cost int
}

func (h BcryptCodeHasher) Hash(code string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt generate: %w", err)
	}
	return string(b), nil
}

// Matches: любая ошибка bcrypt считается несовпадением.
func (h BcryptCodeHasher) Matches(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}

type CodeState string

const (
	CodeStateNone      CodeState = "no_code_issued"
	CodeStatePending   CodeState = "code_pending"
	CodeStateVerified  CodeState = "verified"
	CodeStateLockedOut CodeState = "locked_out"
	CodeStateExpired   CodeState = "expired"
)

// CodeCheck: результат одной попытки.
type CodeCheck struct {
	Outcome           models.AccessOutcome
	Attempts          int
	AttemptsRemaining int
	// JustLocked: эта попытка исчерпала лимит.
	JustLocked bool
}

// VerificationCodeService: машина состояний SMS-кода одной заявки. Методы только меняют
// переданную заявку; сериализация и запись на стороне репозитория.
type VerificationCodeService struct {
	TTL         time.Duration
	MaxAttempts int
	Hasher      CodeHasher

	generate func() (string, error)
}

func NewVerificationCodeService(ttl time.Duration, maxAttempts int, hasher CodeHasher) *VerificationCodeService {
	if hasher == nil {
		hasher = BcryptCodeHasher{}
	}
	return &VerificationCodeService{
		TTL:         ttl,
		MaxAttempts: maxAttempts,
		Hasher:      hasher,
		generate:    func() (string, error) { return utils.NewNumericCode(codeDigits) },
	}
}

// Issue генерирует новый код, перезаписывая предыдущий, и сбрасывает счётчик попыток.
// Возвращает сам код: он уходит только в SMS.
func (s *VerificationCodeService) Issue(reg *models.Registration, now time.Time) (string, error) {
	code, err := s.generate()
	if err != nil {
		return "", err
	}
	hash, err := s.Hasher.Hash(code)
	if err != nil {
		return "", err
	}
	expires := now.Add(s.TTL)
	reg.VerificationCode = &hash
	reg.VerificationCodeExpiry = &expires
	reg.VerificationAttempts = 0
	return code, nil
}

// Check проверяет код. Лимит проверяется до инкремента; затем каждая попытка считается,
// включая правильную. Просроченный код не сверяется вовсе.
// Телефон уже подтверждён и нового кода нет: попытка не считается, блокировки нет.
func (s *VerificationCodeService) Check(reg *models.Registration, code string, now time.Time) CodeCheck {
	switch s.State(reg, now) {
	case CodeStateLockedOut:
		return CodeCheck{Outcome: models.OutcomeLockedOut, Attempts: reg.VerificationAttempts}
	case CodeStateVerified:
		return CodeCheck{
			Outcome:           models.OutcomeInvalid,
			Attempts:          reg.VerificationAttempts,
			AttemptsRemaining: max(s.MaxAttempts-reg.VerificationAttempts, 0),
		}
	}

	pending := reg.HasPendingCode()
	reg.VerificationAttempts++
	res := CodeCheck{
		Attempts:          reg.VerificationAttempts,
		AttemptsRemaining: max(s.MaxAttempts-reg.VerificationAttempts, 0),
	}

	switch {
	case !pending:
		res.Outcome = models.OutcomeInvalid
	case now.After(*reg.VerificationCodeExpiry):
		res.Outcome = models.OutcomeCodeExpired
	case !s.Hasher.Matches(*reg.VerificationCode, code):
		res.Outcome = models.OutcomeWrongCode
	default:
		reg.PhoneVerified = true
		reg.VerificationCode = nil
		reg.VerificationCodeExpiry = nil
		res.Outcome = models.OutcomeOK
		return res
	}
	// блокируется только активный код
	res.JustLocked = pending && res.AttemptsRemaining == 0
	return res
}

func (s *VerificationCodeService) State(reg *models.Registration, now time.Time) CodeState {
	pending := reg.HasPendingCode()
	switch {
	case pending && reg.VerificationAttempts >= s.MaxAttempts:
		return CodeStateLockedOut
	case pending && now.After(*reg.VerificationCodeExpiry):
		return CodeStateExpired
	case pending:
		return CodeStatePending
	case reg.PhoneVerified:
		return CodeStateVerified
	case reg.VerificationAttempts >= s.MaxAttempts:
		return CodeStateLockedOut
	}
	return CodeStateNone
}

func (s *VerificationCodeService) ExpiresInMinutes() int {
	return int(s.TTL / time.Minute)
}
