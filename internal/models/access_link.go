package models

import "time"

type AccessLinkPurpose string

const (
	AccessLinkInitial  AccessLinkPurpose = "initial"
	AccessLinkReminder AccessLinkPurpose = "reminder"
)

type AccessLinkRequest struct {
	Purpose   AccessLinkPurpose `json:"purpose"`
	SendEmail bool              `json:"send_email"`
}

type AccessLink struct {
	RegistrationID int64             `json:"registration_id"`
	Purpose        AccessLinkPurpose `json:"purpose"`
	URL            string            `json:"access_url"`
	ExpiresAt      time.Time         `json:"expires_at"`
	EmailSent      bool              `json:"email_sent"`
}

type StatusUpdateRequest struct {
	Status RegistrationStatus `json:"status" binding:"required"`
}

// StaffRegistrationView: заявка глазами сотрудника, вместе со ссылкой доступа.
type StaffRegistrationView struct {
	*Registration
	AccessURL string `json:"access_url,omitempty"`
}
