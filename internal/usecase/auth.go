package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"Copilot/internal/domain/models"
	domrepo "Copilot/internal/domain/repository"
	"Copilot/pkg/auth"
	"Copilot/pkg/cache"
	xhttp "Copilot/pkg/http"
	applogger "Copilot/pkg/logger"

	"github.com/google/uuid"
)

// Cache key prefixes. Verification keys and reset tokens are stored hashed.
const (
	verifyKeyPrefix = "auth:verify"
	resetKeyPrefix  = "auth:reset"
	denyKeyPrefix   = "auth:denylist"
)

// Auth messages returned to clients.
const (
	MsgVerificationSent  = "Verification e-mail sent."
	MsgLoggedOut         = "Successfully logged out."
	MsgResetSent         = "Password reset e-mail has been sent."
	MsgPasswordReset     = "Password has been reset with the new password."
	MsgPasswordChanged   = "New password has been saved."
	msgUsernameTaken     = "A user with that username already exists."
	msgEmailTaken        = "A user is already registered with this e-mail address."
	msgPasswordMismatch  = "The two password fields didn't match."
	msgEmailNotVerified  = "E-mail is not verified."
	msgNoAccount         = "No account found with the given username."
	msgNoActiveAccount   = "No active account found with the given credentials"
	msgRefreshMissing    = "Refresh token was not included in request data."
	msgInvalidValue      = "Invalid value"
	msgVerifiedElsewhere = "This e-mail address is already verified by another account."
)

// AuthConfig holds token lifetimes and link targets.
type AuthConfig struct {
	EmailVerificationTTL time.Duration
	PasswordResetTTL     time.Duration
	FrontendURL          string
}

// AuthUseCase implements registration, e-mail verification, JWT issuance
// and password management.
type AuthUseCase struct {
	users   domrepo.UserRepository
	tokens  *auth.Issuer
	store   cache.Service
	mailer  domrepo.Mailer
	cfg     AuthConfig
	l       *applogger.Logger
	metrics domrepo.Metrics
	now     func() time.Time
}

func NewAuthUseCase(users domrepo.UserRepository, tokens *auth.Issuer, store cache.Service, mailer domrepo.Mailer, cfg AuthConfig, l *applogger.Logger, m domrepo.Metrics) *AuthUseCase {
	if cfg.EmailVerificationTTL <= 0 {
		cfg.EmailVerificationTTL = 72 * time.Hour
	}
	if cfg.PasswordResetTTL <= 0 {
		cfg.PasswordResetTTL = 24 * time.Hour
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &AuthUseCase{
		users:   users,
		tokens:  tokens,
		store:   store,
		mailer:  mailer,
		cfg:     cfg,
		l:       l,
		metrics: m,
		now:     time.Now,
	}
}

type RegisterInput struct {
	Username  string
	Email     string
	Password1 string
	Password2 string
}

func resetKey(uid, token string) string {
	return cache.GenerateKeyWithParams(resetKeyPrefix, uid, cache.HashKey(token))
}

type verifyToken struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

type resetToken struct {
	UserID int64 `json:"user_id"`
}

func (uc *AuthUseCase) record(event string, err error) {
	if uc.metrics != nil {
		uc.metrics.RecordAuthEvent(event, err == nil)
	}
}

// Register creates an inactive-email account and sends a confirmation key.
// Validation problems are returned as xhttp.FieldErrors.
func (uc *AuthUseCase) Register(ctx context.Context, in RegisterInput) (err error) {
	defer func() { uc.record("register", err) }()

	fe := xhttp.FieldErrors{}
	if _, err := uc.users.GetByUsername(ctx, in.Username); err == nil {
		fe.Add("username", msgUsernameTaken)
	} else if !errors.Is(err, domrepo.ErrUserNotFound) {
		return err
	}
	verified, err := uc.users.IsEmailVerified(ctx, in.Email)
	if err != nil {
		return err
	}
	if verified {
		fe.Add("email", msgEmailTaken)
	}
	for _, msg := range auth.ValidatePassword(in.Password1, map[string]string{"username": in.Username, "email": in.Email}) {
		fe.Add("password1", msg)
	}
	if in.Password1 != in.Password2 {
		fe.Add(xhttp.NonFieldErrorsKey, msgPasswordMismatch)
	}
	if !fe.Empty() {
		return fe
	}

	hash, err := auth.HashPassword(in.Password1)
	if err != nil {
		return err
	}
	u, err := uc.users.Create(ctx, &models.User{
		Username:     in.Username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		IsActive:     true,
		DateJoined:   uc.now().UTC(),
	})
	if errors.Is(err, domrepo.ErrDuplicateUsername) {
		return xhttp.FieldErrors{"username": {msgUsernameTaken}}
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	if err := uc.sendConfirmation(ctx, u.ID, u.Email); err != nil {
		// Without the mail the account could never be verified; drop it so the client can retry.
		if derr := uc.users.Delete(ctx, u.ID); derr != nil {
			uc.l.Error("rollback registration failed", applogger.Int64("user_id", u.ID), applogger.Error(derr))
		}
		return fmt.Errorf("send confirmation: %w", err)
	}
	uc.l.Info("user registered", applogger.Int64("user_id", u.ID), applogger.String("username", u.Username))
	return nil
}

func (uc *AuthUseCase) sendConfirmation(ctx context.Context, userID int64, email string) error {
	key := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := uc.store.Set(ctx, cache.GenerateKey(verifyKeyPrefix, cache.HashKey(key)), verifyToken{UserID: userID, Email: email}, uc.cfg.EmailVerificationTTL); err != nil {
		return fmt.Errorf("store verification key: %w", err)
	}
	link := strings.TrimRight(uc.cfg.FrontendURL, "/") + "/verify-email/" + key
	return uc.mailer.Send(ctx, models.Mail{
		Kind:    models.MailEmailConfirmation,
		To:      email,
		Subject: "Please confirm your e-mail address",
		Body:    "To confirm this is your e-mail address, go to " + link,
		Meta:    map[string]string{"key": key, "link": link},
	})
}

// VerifyEmail consumes a confirmation key.
func (uc *AuthUseCase) VerifyEmail(ctx context.Context, key string) (err error) {
	defer func() { uc.record("verify_email", err) }()

	var tok verifyToken
	if err := uc.store.Take(ctx, cache.GenerateKey(verifyKeyPrefix, cache.HashKey(key)), &tok); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return xhttp.NotFoundError("Not found.")
		}
		return err
	}
	if err := uc.users.MarkEmailVerified(ctx, tok.UserID, tok.Email); err != nil {
		switch {
		case errors.Is(err, domrepo.ErrEmailTaken):
			return xhttp.FieldError("key", msgVerifiedElsewhere)
		case errors.Is(err, domrepo.ErrUserNotFound):
			return xhttp.NotFoundError("Not found.")
		}
		return err
	}
	return nil
}

// ResendEmail sends a fresh key to every unverified account using email.
// It reports success whether or not any account matched.
func (uc *AuthUseCase) ResendEmail(ctx context.Context, email string) error {
	users, err := uc.users.ListByEmail(ctx, email)
	if err != nil {
		return err
	}
	for _, u := range users {
		addr, err := uc.users.PrimaryEmail(ctx, u.ID)
		if err != nil || addr.Verified {
			continue
		}
		if err := uc.sendConfirmation(ctx, u.ID, addr.Email); err != nil {
			return err
		}
	}
	return nil
}

// ObtainToken checks credentials and the verified-email precondition.
func (uc *AuthUseCase) ObtainToken(ctx context.Context, username, password string) (pair *models.TokenPair, err error) {
	defer func() { uc.record("login", err) }()

	u, err := uc.users.GetByUsername(ctx, username)
	if errors.Is(err, domrepo.ErrUserNotFound) {
		return nil, xhttp.FieldError("email", msgNoAccount)
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive || !auth.CheckPassword(u.PasswordHash, password) {
		return nil, xhttp.NewAppError("no_active_account", "", msgNoActiveAccount, http.StatusUnauthorized)
	}

	addr, err := uc.users.PrimaryEmail(ctx, u.ID)
	if err != nil && !errors.Is(err, domrepo.ErrUserNotFound) {
		return nil, err
	}
	if addr == nil || !addr.Verified {
		return nil, xhttp.FieldError("email", msgEmailNotVerified)
	}

	access, refresh, err := uc.tokens.IssuePair(u.ID)
	if err != nil {
		return nil, err
	}
	if err := uc.users.TouchLastLogin(ctx, u.ID, uc.now().UTC()); err != nil {
		uc.l.Warn("update last login failed", applogger.Int64("user_id", u.ID), applogger.Error(err))
	}
	return &models.TokenPair{Access: access, Refresh: refresh}, nil
}

// parseRefresh verifies a refresh token that is not on the denylist.
func (uc *AuthUseCase) parseRefresh(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := uc.tokens.Parse(token, auth.RefreshToken)
	if err != nil {
		return nil, xhttp.TokenNotValidError().WithError(err)
	}
	denied, err := uc.store.Exists(ctx, cache.GenerateKey(denyKeyPrefix, claims.ID))
	if err != nil {
		return nil, err
	}
	if denied {
		return nil, xhttp.TokenNotValidError()
	}
	return claims, nil
}

// Refresh issues a new access token from a refresh token.
func (uc *AuthUseCase) Refresh(ctx context.Context, refresh string) (access string, err error) {
	defer func() { uc.record("refresh", err) }()

	claims, err := uc.parseRefresh(ctx, refresh)
	if err != nil {
		return "", err
	}
	u, err := uc.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, domrepo.ErrUserNotFound) || (err == nil && !u.IsActive) {
		return "", xhttp.TokenNotValidError()
	}
	if err != nil {
		return "", err
	}
	access, _, err = uc.tokens.Issue(u.ID, auth.AccessToken)
	return access, err
}

// VerifyToken checks any token issued by this service.
func (uc *AuthUseCase) VerifyToken(ctx context.Context, token string) error {
	claims, err := uc.tokens.Parse(token, "")
	if err != nil {
		return xhttp.TokenNotValidError().WithError(err)
	}
	if claims.TokenType == auth.RefreshToken {
		_, err = uc.parseRefresh(ctx, token)
	}
	return err
}

// Logout denylists refresh until it would have expired.
func (uc *AuthUseCase) Logout(ctx context.Context, refresh string) (err error) {
	defer func() { uc.record("logout", err) }()

	if refresh == "" {
		return xhttp.UnauthorizedError(msgRefreshMissing)
	}
	claims, err := uc.parseRefresh(ctx, refresh)
	if err != nil {
		return err
	}
	ttl := uc.tokens.Remaining(claims)
	if ttl <= 0 {
		return nil
	}
	return uc.store.Set(ctx, cache.GenerateKey(denyKeyPrefix, claims.ID), true, ttl)
}

// PasswordReset mails a reset link to every active account using email.
// It reports success whether or not any account matched.
func (uc *AuthUseCase) PasswordReset(ctx context.Context, email string) (err error) {
	defer func() { uc.record("password_reset", err) }()

	users, err := uc.users.ListByEmail(ctx, email)
	if err != nil {
		return err
	}
	for _, u := range users {
		token := strings.ReplaceAll(uuid.NewString(), "-", "")
		uid := strconv.FormatInt(u.ID, 36)
		if err := uc.store.Set(ctx, resetKey(uid, token), resetToken{UserID: u.ID}, uc.cfg.PasswordResetTTL); err != nil {
			return fmt.Errorf("store reset token: %w", err)
		}
		link := strings.TrimRight(uc.cfg.FrontendURL, "/") + "/password-reset/" + uid + "/" + token
		if err := uc.mailer.Send(ctx, models.Mail{
			Kind:    models.MailPasswordReset,
			To:      u.Email,
			Subject: "Password reset",
			Body:    "You're receiving this e-mail because a password reset was requested for " + u.Username + ". Go to " + link,
			Meta:    map[string]string{"uid": uid, "token": token, "link": link},
		}); err != nil {
			return err
		}
	}
	return nil
}

// PasswordResetConfirm sets a new password with a mailed uid and token.
func (uc *AuthUseCase) PasswordResetConfirm(ctx context.Context, uid, token, password1, password2 string) (err error) {
	defer func() { uc.record("password_reset_confirm", err) }()

	id, perr := strconv.ParseInt(uid, 36, 64)
	if perr != nil {
		return xhttp.FieldErrors{"uid": {msgInvalidValue}}
	}
	key := resetKey(uid, token)
	var tok resetToken
	if err := uc.store.Get(ctx, key, &tok); err != nil || tok.UserID != id {
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			return err
		}
		return xhttp.FieldErrors{"token": {msgInvalidValue}}
	}
	u, err := uc.users.GetByID(ctx, id)
	if errors.Is(err, domrepo.ErrUserNotFound) {
		return xhttp.FieldErrors{"uid": {msgInvalidValue}}
	}
	if err != nil {
		return err
	}
	if fe := uc.checkNewPassword(u, password1, password2); fe != nil {
		return fe
	}
	if err := uc.setPassword(ctx, u.ID, password1); err != nil {
		return err
	}
	// Single use: a changed password invalidates the link.
	return uc.store.Delete(ctx, key)
}

// PasswordChange sets a new password for an authenticated user.
func (uc *AuthUseCase) PasswordChange(ctx context.Context, userID int64, password1, password2 string) (err error) {
	defer func() { uc.record("password_change", err) }()

	u, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if fe := uc.checkNewPassword(u, password1, password2); fe != nil {
		return fe
	}
	return uc.setPassword(ctx, u.ID, password1)
}

// CurrentUser returns the public view of userID.
func (uc *AuthUseCase) CurrentUser(ctx context.Context, userID int64) (*models.UserDetails, error) {
	u, err := uc.users.GetByID(ctx, userID)
	if errors.Is(err, domrepo.ErrUserNotFound) {
		return nil, xhttp.TokenNotValidError()
	}
	if err != nil {
		return nil, err
	}
	d := u.Details()
	return &d, nil
}

func (uc *AuthUseCase) checkNewPassword(u *models.User, password1, password2 string) xhttp.FieldErrors {
	fe := xhttp.FieldErrors{}
	if password1 != password2 {
		fe.Add("new_password2", msgPasswordMismatch)
	} else {
		for _, msg := range auth.ValidatePassword(password1, map[string]string{"username": u.Username, "email": u.Email}) {
			fe.Add("new_password2", msg)
		}
	}
	if fe.Empty() {
		return nil
	}
	return fe
}

func (uc *AuthUseCase) setPassword(ctx context.Context, id int64, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return uc.users.UpdatePassword(ctx, id, hash)
}

// AccountStatus lets auth.Authenticate reject tokens of deleted or
// deactivated accounts.
func AccountStatus(users domrepo.UserRepository) auth.AccountStatus {
	return func(ctx context.Context, userID int64) (bool, error) {
		u, err := users.GetByID(ctx, userID)
		if errors.Is(err, domrepo.ErrUserNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return u.IsActive, nil
	}
}
