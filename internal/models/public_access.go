package models

import (
	"encoding/json"
	"time"
)

// AccessOutcome: закрытый набор исходов публичных операций.
type AccessOutcome string

const (
	OutcomeOK           AccessOutcome = "ok"
	OutcomeNotFound     AccessOutcome = "not_found"
	OutcomeExpired      AccessOutcome = "expired"
	OutcomeInvalid      AccessOutcome = "invalid"
	OutcomeWrongCode    AccessOutcome = "wrong_code"
	OutcomeCodeExpired  AccessOutcome = "code_expired"
	OutcomeLockedOut    AccessOutcome = "locked_out"
	OutcomeUnauthorized AccessOutcome = "unauthorized"
	OutcomeNotEditable  AccessOutcome = "not_editable"
)

type RequestCodeResult struct {
	Outcome             AccessOutcome
	PhoneMasked         string
	ExpiresInMinutes    int
	SMSDelivered        bool
	RequiresPhoneUpdate bool
}

type VerifyCodeResult struct {
	Outcome           AccessOutcome
	RegistrationID    int64
	SessionToken      string
	SessionExpiresAt  time.Time
	RedirectURL       string
	AttemptsRemaining int
}

type RecordResult struct {
	Outcome AccessOutcome
	// Reason уточняет OutcomeInvalid (какое поле не прошло проверку).
	Reason  string
	Details *PublicRegistrationDetails
	// Registration is the full record; only set for Outcome == OutcomeOK.
	Registration *Registration
}

// PublicRegistrationDetails: то, что видит заявитель после верификации.
type PublicRegistrationDetails struct {
	ID            int64              `json:"id"`
	FirstName     string             `json:"firstName"`
	LastName      string             `json:"lastName"`
	Email         string             `json:"email"`
	Phone         string             `json:"phone"`
	AddressLine   string             `json:"addressLine"`
	PostalCode    string             `json:"postalCode"`
	City          string             `json:"city"`
	Country       string             `json:"country"`
	FormData      json.RawMessage    `json:"formData,omitempty"`
	Status        RegistrationStatus `json:"status"`
	PhoneVerified bool               `json:"phoneVerified"`
	EmailVerified bool               `json:"emailVerified"`
	Editable      bool               `json:"editable"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func NewPublicRegistrationDetails(r *Registration) *PublicRegistrationDetails {
	return &PublicRegistrationDetails{
		ID:            r.ID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		Phone:         r.Phone,
		AddressLine:   r.AddressLine,
		PostalCode:    r.PostalCode,
		City:          r.City,
		Country:       r.Country,
		FormData:      r.FormData,
		Status:        r.Status,
		PhoneVerified: r.PhoneVerified,
		EmailVerified: r.EmailVerified,
		Editable:      r.Status.Editable(),
		UpdatedAt:     r.UpdatedAt,
	}
}

// PublicRegistrationUpdate: ограниченный набор полей, которые заявитель может менять.
// nil означает "не трогать".
type PublicRegistrationUpdate struct {
	FirstName   *string         `json:"firstName"`
	LastName    *string         `json:"lastName"`
	Email       *string         `json:"email"`
	Phone       *string         `json:"phone"`
	AddressLine *string         `json:"addressLine"`
	PostalCode  *string         `json:"postalCode"`
	City        *string         `json:"city"`
	Country     *string         `json:"country"`
	FormData    json.RawMessage `json:"formData"`
}

type VerifyCodeRequest struct {
	Code string `json:"code" binding:"required"`
}
