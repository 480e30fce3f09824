package models

import "time"

// User is a registered account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	DateJoined   time.Time
	LastLogin    *time.Time
}

// EmailAddress tracks the verification state of an address.
// An address may be attached to several unverified accounts but
// only one account may hold it verified.
type EmailAddress struct {
	ID       int64
	UserID   int64
	Email    string
	Verified bool
	Primary  bool
}

// TokenPair is what token-obtain returns.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// UserDetails is the public view of a user.
type UserDetails struct {
	PK       int64  `json:"pk"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Details returns the public view of u.
func (u *User) Details() UserDetails {
	return UserDetails{PK: u.ID, Username: u.Username, Email: u.Email}
}

// Mail is an outgoing message.
type Mail struct {
	Kind    string            `json:"kind"`
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	Body    string            `json:"body"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Mail kinds.
const (
	MailEmailConfirmation = "email_confirmation"
	MailPasswordReset     = "password_reset"
)
