// Package identity holds exchange user accounts and their links to
// practitioner and patient records. It backs the auth middleware's caller
// resolution.
package identity

import "time"

// User types stored on jhe_user rows.
const (
	UserTypePractitioner = "practitioner"
	UserTypePatient      = "patient"
)

// JheUser is an exchange account. A user is either a practitioner or a
// patient; superusers are flagged separately.
type JheUser struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Identifier  *string   `json:"identifier,omitempty"`
	UserType    string    `json:"user_type"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedTime time.Time `json:"created_time"`
}

// Practitioner is the clinical-staff record linked to a JheUser.
type Practitioner struct {
	ID           int64   `json:"id"`
	JheUserID    int64   `json:"jhe_user_id"`
	Identifier   *string `json:"identifier,omitempty"`
	NameFamily   *string `json:"name_family,omitempty"`
	NameGiven    *string `json:"name_given,omitempty"`
	TelecomPhone *string `json:"telecom_phone,omitempty"`
}
