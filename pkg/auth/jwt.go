package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access from refresh tokens.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// ErrTokenInvalid is returned for malformed, expired, mistyped or badly signed tokens.
var ErrTokenInvalid = errors.New("token is invalid or expired")

// Claims is the JWT payload.
type Claims struct {
	TokenType TokenType `json:"token_type"`
	UserID    int64     `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenConfig configures an Issuer.
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer creates an Issuer.
func NewIssuer(cfg TokenConfig) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 5 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	return &Issuer{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// Issue signs a token of typ for userID.
func (i *Issuer) Issue(userID int64, typ TokenType) (string, *Claims, error) {
	ttl := i.accessTTL
	if typ == RefreshToken {
		ttl = i.refreshTTL
	}
	now := i.now()
	claims := &Claims{
		TokenType: typ,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// IssuePair signs an access and a refresh token for userID.
func (i *Issuer) IssuePair(userID int64) (access, refresh string, err error) {
	if access, _, err = i.Issue(userID, AccessToken); err != nil {
		return "", "", err
	}
	if refresh, _, err = i.Issue(userID, RefreshToken); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Parse verifies token and checks that it is of the wanted type. An empty
// want accepts either type.
func (i *Issuer) Parse(token string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if want != "" && claims.TokenType != want {
		return nil, fmt.Errorf("%w: token has wrong type", ErrTokenInvalid)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: token has no id", ErrTokenInvalid)
	}
	return claims, nil
}

// Remaining returns how long claims stay valid.
func (i *Issuer) Remaining(c *Claims) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Time.Sub(i.now())
	if d < 0 {
		return 0
	}
	return d
}
