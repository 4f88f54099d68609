package model

import "time"

type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash []byte    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AdminSession is the capability handed to admin actions once a request's
// admin token has been validated.
type AdminSession struct {
	ProfileID string
	ExpiresAt time.Time
}

func (s AdminSession) Valid(now time.Time) bool {
	return s.ProfileID != "" && now.Before(s.ExpiresAt)
}
