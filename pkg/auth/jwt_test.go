package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	i, err := NewIssuer(TokenConfig{Secret: "test-secret", Issuer: "copilot", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return i
}

func TestIssueAndParse(t *testing.T) {
	i := newTestIssuer(t)
	access, refresh, err := i.IssuePair(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	c, err := i.Parse(access, AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if c.UserID != 42 || c.TokenType != AccessToken || c.ID == "" {
		t.Fatalf("unexpected claims %+v", c)
	}
	if _, err := i.Parse(refresh, AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh token must not pass as access, got %v", err)
	}
	if rc, err := i.Parse(refresh, ""); err != nil || rc.TokenType != RefreshToken {
		t.Fatalf("expected any-type parse to accept refresh, got %v %v", rc, err)
	}
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	i := newTestIssuer(t)
	token, _, err := i.Issue(1, AccessToken)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	i.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := i.Parse(token, AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	other, _ := NewIssuer(TokenConfig{Secret: "other-secret", Issuer: "copilot"})
	foreign, _, _ := other.Issue(1, AccessToken)
	i.now = time.Now
	if _, err := i.Parse(foreign, AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected bad signature to be rejected, got %v", err)
	}
	if _, err := i.Parse("not-a-jwt", AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected garbage to be rejected, got %v", err)
	}
}

func TestRemaining(t *testing.T) {
	i := newTestIssuer(t)
	_, c, _ := i.Issue(1, RefreshToken)
	if r := i.Remaining(c); r <= 59*time.Minute || r > time.Hour {
		t.Fatalf("unexpected remaining %v", r)
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer(TokenConfig{}); err == nil {
		t.Fatalf("expected error")
	}
}
