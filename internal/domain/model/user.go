package model

import (
	"time"

	"association-membership/internal/domain"

	"github.com/google/uuid"
)

// Accreditation is the member's access level. It is derived state: only the
// reconciliation engine, the sweep job, the unsubscribe flow and the
// email-validation flow may write it.
type Accreditation int

const (
	AccreditationUnvalidated Accreditation = 0 // registered, email not confirmed
	AccreditationValidated   Accreditation = 1 // confirmed email, no active subscription
	AccreditationPaying      Accreditation = 2 // active paying subscriber
)

func (a Accreditation) String() string {
	switch a {
	case AccreditationUnvalidated:
		return "unvalidated"
	case AccreditationValidated:
		return "validated"
	case AccreditationPaying:
		return "paying"
	}
	return "unknown"
}

// User is a domain entity representing a registered member.
type User struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	Accreditation Accreditation
	ValidateToken string // one-shot email-confirmation token
	ResetToken    string // one-shot password-reset token
	RegisteredAt  time.Time
}

func NewUser(id, username, email, passwordHash string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if username == "" || email == "" || passwordHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:            id,
		Username:      username,
		Email:         email,
		PasswordHash:  passwordHash,
		Accreditation: AccreditationUnvalidated,
		ValidateToken: uuid.NewString(),
		RegisteredAt:  time.Now(),
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
