package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAuthenticateAndRequireUser(t *testing.T) {
	i := newTestIssuer(t)
	access, refresh, _ := i.IssuePair(7)

	e := echo.New()
	e.Use(Authenticate(i, nil))
	e.GET("/me", func(c echo.Context) error {
		claims, _ := FromContext(c.Request().Context())
		return c.JSON(http.StatusOK, map[string]int64{"id": claims.UserID})
	}, RequireUser)
	e.GET("/open", func(c echo.Context) error {
		_, ok := FromContext(c.Request().Context())
		if ok {
			return c.String(http.StatusOK, "user")
		}
		return c.String(http.StatusOK, "anonymous")
	})

	do := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	if rec := do("/me", access); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":7`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if rec := do("/me", ""); rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "not_authenticated") {
		t.Fatalf("unexpected anonymous response %d %s", rec.Code, rec.Body.String())
	}
	if rec := do("/me", refresh); rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "token_not_valid") {
		t.Fatalf("unexpected refresh-as-access response %d %s", rec.Code, rec.Body.String())
	}
	if rec := do("/open", "garbage"); rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
		t.Fatalf("authenticate must not reject, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := do("/open", access); rec.Body.String() != "user" {
		t.Fatalf("expected identity on open route, got %s", rec.Body.String())
	}
}

func TestAuthenticateChecksAccountStatus(t *testing.T) {
	i := newTestIssuer(t)
	active, _, _ := i.Issue(1, AccessToken)
	disabled, _, _ := i.Issue(2, AccessToken)
	broken, _, _ := i.Issue(3, AccessToken)

	status := func(_ context.Context, userID int64) (bool, error) {
		switch userID {
		case 1:
			return true, nil
		case 3:
			return false, errors.New("store down")
		}
		return false, nil
	}

	e := echo.New()
	h := Authenticate(i, status)(RequireUser(func(c echo.Context) error { return c.String(http.StatusOK, "ok") }))

	do := func(token string) (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		return rec, h(e.NewContext(req, rec))
	}

	if rec, err := do(active); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("active account: %v %d", err, rec.Code)
	}
	if rec, err := do(disabled); err != nil || rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "token_not_valid") {
		t.Fatalf("unknown account must be rejected: %v %d %s", err, rec.Code, rec.Body.String())
	}
	if _, err := do(broken); err == nil {
		t.Fatalf("expected lookup error to propagate")
	}
}
