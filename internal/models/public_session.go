package models

import "time"

// PublicSession: привязка sessionToken к заявке. На заявку одна активная сессия,
// каждая успешная верификация её перезаписывает. Храним только хэши токенов.
type PublicSession struct {
	RegistrationID    int64     `json:"registration_id"`
	TokenHash         string    `json:"token_hash"`
	AccessTokenHash   string    `json:"access_token_hash"`
	IssuedAt          time.Time `json:"issued_at"`
	LastSeenAt        time.Time `json:"last_seen_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	AbsoluteExpiresAt time.Time `json:"absolute_expires_at"`
}

// ExpiredAt reports whether either the idle or the absolute deadline has passed.
func (s *PublicSession) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt) || now.After(s.AbsoluteExpiresAt)
}

// Deadline is the earlier of the idle and absolute expiries.
func (s *PublicSession) Deadline() time.Time {
	if s.AbsoluteExpiresAt.Before(s.ExpiresAt) {
		return s.AbsoluteExpiresAt
	}
	return s.ExpiresAt
}
