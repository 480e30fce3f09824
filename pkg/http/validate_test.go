package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type signupRequest struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" default:"member"`
}

func newJSONContext(body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func TestReadAndValidateRequestOK(t *testing.T) {
	c, _ := newJSONContext(`{"username":"alice","email":"a@example.com","password":"x"}`)
	var req signupRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		t.Fatalf("unexpected errors %v", errs)
	}
	if req.Role != "member" {
		t.Fatalf("expected default role, got %q", req.Role)
	}
}

func TestReadAndValidateRequestFieldErrors(t *testing.T) {
	c, _ := newJSONContext(`{"username":"bad name!","email":"nope"}`)
	var req signupRequest
	errs := ReadAndValidateRequest(c, &req)
	if errs == nil {
		t.Fatalf("expected errors")
	}
	if got := errs["password"]; len(got) != 1 || got[0] != "This field is required." {
		t.Fatalf("unexpected password errors %v", got)
	}
	if got := errs["email"]; len(got) != 1 || got[0] != "Enter a valid email address." {
		t.Fatalf("unexpected email errors %v", got)
	}
	if got := errs["username"]; len(got) != 1 || !strings.HasPrefix(got[0], "Enter a valid username.") {
		t.Fatalf("unexpected username errors %v", got)
	}
}

func TestReadAndValidateRequestMalformedBody(t *testing.T) {
	c, _ := newJSONContext(`{"username":`)
	var req signupRequest
	errs := ReadAndValidateRequest(c, &req)
	if len(errs[NonFieldErrorsKey]) == 0 {
		t.Fatalf("expected non-field error, got %v", errs)
	}
}

func TestAppErrorResponse(t *testing.T) {
	c, rec := newJSONContext(``)
	if err := AppErrorResponse(c, FieldError("email", "E-mail is not verified.")); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"email":["E-mail is not verified."]`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	c, rec = newJSONContext(``)
	_ = AppErrorResponse(c, TokenNotValidError())
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), `"code":"token_not_valid"`) {
		t.Fatalf("unexpected token response %d %s", rec.Code, rec.Body.String())
	}

	c, _ = newJSONContext(``)
	plain := errors.New("plain")
	if err := AppErrorResponse(c, plain); !errors.Is(err, plain) {
		t.Fatalf("expected plain error to be returned, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	c, _ := newJSONContext(``)
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer abc.def")
	if tok, ok := BearerToken(c); !ok || tok != "abc.def" {
		t.Fatalf("unexpected token %q %v", tok, ok)
	}
	c.Request().Header.Set(echo.HeaderAuthorization, "Basic xyz")
	if _, ok := BearerToken(c); ok {
		t.Fatalf("expected basic scheme to be rejected")
	}
}
