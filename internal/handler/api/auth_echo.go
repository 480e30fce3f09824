package api

import (
	"context"
	"net/http"

	"Copilot/internal/domain/models"
	"Copilot/internal/usecase"
	"Copilot/pkg/auth"
	xhttp "Copilot/pkg/http"
	"Copilot/pkg/http/middleware"
	xlogger "Copilot/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AuthService is the account surface mounted under /api/auth.
type AuthService interface {
	Register(ctx context.Context, in usecase.RegisterInput) error
	VerifyEmail(ctx context.Context, key string) error
	ResendEmail(ctx context.Context, email string) error
	ObtainToken(ctx context.Context, username, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refresh string) (string, error)
	VerifyToken(ctx context.Context, token string) error
	Logout(ctx context.Context, refresh string) error
	PasswordReset(ctx context.Context, email string) error
	PasswordResetConfirm(ctx context.Context, uid, token, password1, password2 string) error
	PasswordChange(ctx context.Context, userID int64, password1, password2 string) error
	CurrentUser(ctx context.Context, userID int64) (*models.UserDetails, error)
}

// RateLimitConfig throttles the credential endpoints per client IP.
type RateLimitConfig struct {
	Limiter      middleware.Allower
	Capacity     float64
	RefillPerSec float64
}

type registerRequest struct {
	Username  string `json:"username" validate:"required,max=150,username"`
	Email     string `json:"email" validate:"required,email"`
	Password1 string `json:"password1" validate:"required,max=128"`
	Password2 string `json:"password2" validate:"required,max=128"`
}

type verifyEmailRequest struct {
	Key string `json:"key" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type tokenObtainRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type tokenVerifyRequest struct {
	Token string `json:"token" validate:"required"`
}

type logoutRequest struct {
	Refresh string `json:"refresh"`
}

type resetConfirmRequest struct {
	UID          string `json:"uid" validate:"required"`
	Token        string `json:"token" validate:"required"`
	NewPassword1 string `json:"new_password1" validate:"required,max=128"`
	NewPassword2 string `json:"new_password2" validate:"required,max=128"`
}

type passwordChangeRequest struct {
	NewPassword1 string `json:"new_password1" validate:"required,max=128"`
	NewPassword2 string `json:"new_password2" validate:"required,max=128"`
}

type accessResponse struct {
	Access string `json:"access"`
}

// AuthEchoHandler serves registration, JWT and password endpoints.
type AuthEchoHandler struct {
	logger *xlogger.Logger
	svc    AuthService
	tokens *auth.Issuer
	status auth.AccountStatus
	rl     RateLimitConfig
}

func NewAuthEchoHandler(logger *xlogger.Logger, svc AuthService, tokens *auth.Issuer, status auth.AccountStatus, rl RateLimitConfig) *AuthEchoHandler {
	return &AuthEchoHandler{logger: logger, svc: svc, tokens: tokens, status: status, rl: rl}
}

func (h *AuthEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/auth", auth.Authenticate(h.tokens, h.status))
	throttle := middleware.RateLimit(h.rl.Limiter, h.rl.Capacity, h.rl.RefillPerSec)

	g.POST("/registration/", h.Register, throttle)
	g.POST("/registration/verify-email/", h.VerifyEmail)
	g.POST("/registration/resend-email/", h.ResendEmail, throttle)
	g.POST("/token/", h.ObtainToken, throttle)
	g.POST("/token/refresh/", h.Refresh)
	g.POST("/token/verify/", h.VerifyToken)
	g.POST("/logout/", h.Logout)
	g.POST("/password/reset/", h.PasswordReset, throttle)
	g.POST("/password/reset/confirm/", h.PasswordResetConfirm, throttle)
	g.POST("/password/change/", h.PasswordChange, auth.RequireUser)
	g.GET("/user/", h.CurrentUser, auth.RequireUser)
}

// fail renders AppError and FieldErrors; anything else goes to the exception middleware.
func (h *AuthEchoHandler) fail(c echo.Context, op string, err error) error {
	if out := xhttp.AppErrorResponse(c, err); out != nil {
		h.logger.Error("auth usecase error", xlogger.String("op", op), xlogger.Error(err))
		return out
	}
	return nil
}

func (h *AuthEchoHandler) Register(c echo.Context) error {
	req := &registerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.FieldErrorsResponse(c, verr)
	}
	err := h.svc.Register(c.Request().Context(), usecase.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password1: req.Password1,
		Password2: req.Password2,
	})
	if err != nil {
		return h.fail(c, "register", err)
	}
	return xhttp.Detail(c, http.StatusCreated, usecase.MsgVerificationSent)
}

func (h *AuthEchoHandler) VerifyEmail(c echo.Context) error {
	req := &verifyEmailRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.FieldErrorsResponse(c, verr)
	}
	if err := h.svc.VerifyEmail(c.Request().Context(), req.Key); err != nil {
		return h.fail(c, "verify_email", err)
	}
	return xhttp.Detail(c, http.StatusOK, "ok")
}

func (h *AuthEchoHandler) ResendEmail(c echo.Context) error {
	req := &emailRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.FieldErrorsResponse(c, verr)
	}
	if err := h.svc.ResendEmail(c.Request().Context(), req.Email); err != nil {
		return h.fail(c, "resend_email", err)
	}
	return xhttp.Detail(c, http.StatusOK, "ok")
}

func (h *AuthEchoHandler) ObtainToken(c echo.Context) error {
	req := &tokenObtainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.FieldErrorsResponse(c, verr)
	}
	pair, err := h.svc.ObtainToken(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return h.fail(c, "token_obtain", err)
	}
	return xhttp.SuccessResponse(c, pair)
}

func (h *AuthEchoHandler) Refresh(c echo.Context) error {
	req := &refreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.FieldErrorsResponse(c, verr)
	}
	access, err := h.svc.Refresh(c.Request().Context(), req.Refresh)
	if err != nil {
		return h.fail(c, "token_refresh", err)
	}
	return xhttp.SuccessResponse(c, accessResponse{Access: access})
}

func (h *AuthEchoHandler) VerifyToken(c echo.Context) error {
	req := &tokenVerifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.FieldErrorsResponse(c, verr)
	}
	if err := h.svc.VerifyToken(c.Request().Context(), req.Token); err != nil {
		return h.fail(c, "token_verify", err)
	}
	return xhttp.SuccessResponse(c, struct{}{})
}

func (h *AuthEchoHandler) Logout(c echo.Context) error {
	req := &logoutRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.FieldErrorsResponse(c, verr)
	}
	if err := h.svc.Logout(c.Request().Context(), req.Refresh); err != nil {
		return h.fail(c, "logout", err)
	}
	return xhttp.Detail(c, http.StatusOK, usecase.MsgLoggedOut)
}

func (h *AuthEchoHandler) PasswordReset(c echo.Context) error {
	req := &emailRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.FieldErrorsResponse(c, verr)
	}
	if err := h.svc.PasswordReset(c.Request().Context(), req.Email); err != nil {
		return h.fail(c, "password_reset", err)
	}
	return xhttp.Detail(c, http.StatusOK, usecase.MsgResetSent)
}

func (h *AuthEchoHandler) PasswordResetConfirm(c echo.Context) error {
	req := &resetConfirmRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.FieldErrorsResponse(c, verr)
	}
	err := h.svc.PasswordResetConfirm(c.Request().Context(), req.UID, req.Token, req.NewPassword1, req.NewPassword2)
	if err != nil {
		return h.fail(c, "password_reset_confirm", err)
	}
	return xhttp.Detail(c, http.StatusOK, usecase.MsgPasswordReset)
}

func (h *AuthEchoHandler) PasswordChange(c echo.Context) error {
	claims, _ := auth.FromContext(c.Request().Context())
	req := &passwordChangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.FieldErrorsResponse(c, verr)
	}
	if err := h.svc.PasswordChange(c.Request().Context(), claims.UserID, req.NewPassword1, req.NewPassword2); err != nil {
		return h.fail(c, "password_change", err)
	}
	return xhttp.Detail(c, http.StatusOK, usecase.MsgPasswordChanged)
}

func (h *AuthEchoHandler) CurrentUser(c echo.Context) error {
	claims, _ := auth.FromContext(c.Request().Context())
	u, err := h.svc.CurrentUser(c.Request().Context(), claims.UserID)
	if err != nil {
		return h.fail(c, "current_user", err)
	}
	return xhttp.SuccessResponse(c, u)
}
