package repository

import (
	"context"
	"errors"
	"time"

	"Copilot/internal/domain/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrEmailTaken        = errors.New("e-mail already verified by another account")
)

// HistoricalProvider returns daily bars for a symbol between from and to,
// oldest first.
type HistoricalProvider interface {
	Name() string
	History(ctx context.Context, symbol string, from, to time.Time, interval string) ([]models.HistoricalRow, error)
}

// SymbolDirectory searches listed companies.
type SymbolDirectory interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// UserRepository persists accounts and their e-mail addresses.
type UserRepository interface {
	// Create inserts the user and an unverified primary e-mail address.
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// ListByEmail returns every active account whose e-mail matches, case-insensitively.
	ListByEmail(ctx context.Context, email string) ([]*models.User, error)
	// Delete removes the user and its e-mail addresses.
	Delete(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error

	PrimaryEmail(ctx context.Context, userID int64) (*models.EmailAddress, error)
	// IsEmailVerified reports whether any account holds email verified.
	IsEmailVerified(ctx context.Context, email string) (bool, error)
	// MarkEmailVerified verifies email for userID. ErrEmailTaken if another account holds it.
	MarkEmailVerified(ctx context.Context, userID int64, email string) error

	Ping(ctx context.Context) error
}

// Mailer delivers outgoing mail.
type Mailer interface {
	Send(ctx context.Context, m models.Mail) error
}

// Metrics records operational counters.
type Metrics interface {
	RecordProviderCall(provider string, ok bool)
	RecordError(kind string)
	RecordAuthEvent(event string, ok bool)
	RecordLatency(op string, seconds float64)
}
