package models

import (
	"encoding/json"
	"time"
)

type RegistrationStatus string

const (
	RegistrationStatusDraft     RegistrationStatus = "draft"
	RegistrationStatusSubmitted RegistrationStatus = "submitted"
	RegistrationStatusValidated RegistrationStatus = "validated"
	RegistrationStatusRejected  RegistrationStatus = "rejected"
)

// Editable: можно ли заявителю править запись через публичный доступ.
func (s RegistrationStatus) Editable() bool {
	return s == RegistrationStatusDraft || s == RegistrationStatusSubmitted
}

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusDraft, RegistrationStatusSubmitted, RegistrationStatusValidated, RegistrationStatusRejected:
		return true
	}
	return false
}

type Registration struct {
	ID             int64              `json:"id"`
	OrganizationID int64              `json:"organization_id"`
	FormTemplateID *int64             `json:"form_template_id,omitempty"`
	FirstName      string             `json:"first_name"`
	LastName       string             `json:"last_name"`
	Email          string             `json:"email"`
	Phone          string             `json:"phone"`
	AddressLine    string             `json:"address_line"`
	PostalCode     string             `json:"postal_code"`
	City           string             `json:"city"`
	Country        string             `json:"country"`
	FormData       json.RawMessage    `json:"form_data,omitempty"`
	Status         RegistrationStatus `json:"status"`

	// состояние публичного доступа
	AccessToken            *string    `json:"-"`
	AccessTokenExpiry      *time.Time `json:"access_token_expiry,omitempty"`
	VerificationCode       *string    `json:"-"` // bcrypt-хэш кода, сам код не храним
	VerificationCodeExpiry *time.Time `json:"-"`
	VerificationAttempts   int        `json:"verification_attempts"`
	PhoneVerified          bool       `json:"phone_verified"`
	EmailVerified          bool       `json:"email_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccessTokenExpired reports whether the access link can no longer be used at now.
// A registration without an access token is treated as expired.
func (r *Registration) AccessTokenExpired(now time.Time) bool {
	if r.AccessToken == nil || r.AccessTokenExpiry == nil {
		return true
	}
	return now.After(*r.AccessTokenExpiry)
}

func (r *Registration) HasPendingCode() bool {
	return r.VerificationCode != nil && r.VerificationCodeExpiry != nil
}

// ClearVerification drops the pending code and resets the attempt counter.
func (r *Registration) ClearVerification() {
	r.VerificationCode = nil
	r.VerificationCodeExpiry = nil
	r.VerificationAttempts = 0
}

// Clone returns a deep copy so callers can mutate it without aliasing stored state.
func (r *Registration) Clone() *Registration {
	if r == nil {
		return nil
	}
	c := *r
	if r.FormTemplateID != nil {
		v := *r.FormTemplateID
		c.FormTemplateID = &v
	}
	if r.FormData != nil {
		c.FormData = append(json.RawMessage(nil), r.FormData...)
	}
	if r.AccessToken != nil {
		v := *r.AccessToken
		c.AccessToken = &v
	}
	if r.AccessTokenExpiry != nil {
		v := *r.AccessTokenExpiry
		c.AccessTokenExpiry = &v
	}
	if r.VerificationCode != nil {
		v := *r.VerificationCode
		c.VerificationCode = &v
	}
	if r.VerificationCodeExpiry != nil {
		v := *r.VerificationCodeExpiry
		c.VerificationCodeExpiry = &v
	}
	return &c
}

// CreateRegistrationRequest: тело POST /api/registrations (бэк-офис).
type CreateRegistrationRequest struct {
	OrganizationID int64           `json:"organization_id" binding:"required"`
	FormTemplateID *int64          `json:"form_template_id"`
	FirstName      string          `json:"first_name" binding:"required"`
	LastName       string          `json:"last_name" binding:"required"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	AddressLine    string          `json:"address_line"`
	PostalCode     string          `json:"postal_code"`
	City           string          `json:"city"`
	Country        string          `json:"country"`
	FormData       json.RawMessage `json:"form_data"`
}
