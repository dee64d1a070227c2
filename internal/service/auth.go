package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/mail"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/hash"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const (
	ActivationTTL = 20 * time.Minute
	ResetTTL      = 10 * time.Minute
)

var errMailFailed = apperr.Internal("There was an error sending the email. Try again later!")

type AuthService struct {
	Repo      *repo.GormRepo
	Mailer    mail.Sender
	Events    events.Publisher
	JWTSecret []byte
	TokenTTL  time.Duration
	// BaseURL prefixes activation and reset links.
	BaseURL string
	Now     func() time.Time
}

// Session is a signed access token for a user.
type Session struct {
	Token   string
	Expires time.Time
	User    *models.User
}

type SignupInput struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) link(path, token string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/api/v1/users/" + path + "/" + token
}

func (s *AuthService) issue(u *models.User) (*Session, error) {
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	token, exp, err := tokens.CreateAccessToken(u.ID.String(), u.Role, s.now(), ttl, s.JWTSecret)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Expires: exp, User: u}, nil
}

// Signup stores a new, not yet activated user and mails the activation link.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	u := &models.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		Role:      models.RoleUser,
		Active:    true,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := models.ValidatePassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, err
	}

	pw, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}
	u.PasswordHash = pw

	plain, digest, err := hash.NewToken()
	if err != nil {
		return nil, err
	}
	exp := s.now().Add(ActivationTTL)
	u.ActivationToken = digest
	u.ActivationExpires = &exp

	if err := s.Repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("A user with email %s already exists", u.Email)
		}
		return nil, err
	}

	if err := s.Mailer.SendWelcome(ctx, mail.Recipient{Email: u.Email, FirstName: u.FirstName}, s.link("activate", plain)); err != nil {
		l.Error("signup_error", "status", 500, "reason", "activation mail failed", "error", err)
		if err := s.clearActivation(ctx, u); err != nil {
			l.Error("signup_error", "reason", "cannot clear activation token", "error", err)
		}
		return nil, errMailFailed
	}

	publish(ctx, s.Events, events.TopicUser, u.ID.String(),
		events.NewEvent("user.signed_up", "user", u.ID.String(), u.ID.String(), map[string]any{"email": u.Email}))
	l.Info("signup_success", "user_id", u.ID)
	return u, nil
}

func (s *AuthService) clearActivation(ctx context.Context, u *models.User) error {
	u.ActivationToken = ""
	u.ActivationExpires = nil
	return s.Repo.UpdateUser(ctx, u, map[string]any{"activation_token": "", "activation_expires": nil})
}

// Activate consumes an activation token and logs the user in.
func (s *AuthService) Activate(ctx context.Context, token string) (*Session, error) {
	u, err := s.Repo.UserByActivationToken(ctx, hash.Digest(token))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Validation("Token is invalid or has expired")
	}
	if err != nil {
		return nil, err
	}
	if u.ActivationExpires == nil || !u.ActivationExpires.After(s.now()) {
		return nil, apperr.Validation("Token is invalid or has expired")
	}

	u.AccountActivated = true
	u.ActivationToken = ""
	u.ActivationExpires = nil
	err = s.Repo.UpdateUser(ctx, u, map[string]any{
		"account_activated":  true,
		"activation_token":   "",
		"activation_expires": nil,
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicUser, u.ID.String(),
		events.NewEvent("user.activated", "user", u.ID.String(), u.ID.String(), nil))
	return s.issue(u)
}

// ResendActivation mails a fresh activation link to a not yet activated account.
func (s *AuthService) ResendActivation(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "auth.resend_activation")

	if strings.TrimSpace(email) == "" {
		return apperr.Validation("Please provide an email address")
	}
	u, err := s.Repo.UserByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("There is no user with email address %s", email)
	}
	if err != nil {
		return err
	}
	if u.AccountActivated {
		return apperr.Validation("Your account is already activated")
	}

	plain, digest, err := hash.NewToken()
	if err != nil {
		return err
	}
	exp := s.now().Add(ActivationTTL)
	u.ActivationToken = digest
	u.ActivationExpires = &exp
	if err := s.Repo.UpdateUser(ctx, u, map[string]any{"activation_token": digest, "activation_expires": exp}); err != nil {
		return err
	}

	if err := s.Mailer.SendWelcome(ctx, mail.Recipient{Email: u.Email, FirstName: u.FirstName}, s.link("activate", plain)); err != nil {
		l.Error("resend_activation_error", "status", 500, "reason", "activation mail failed", "error", err)
		if err := s.clearActivation(ctx, u); err != nil {
			l.Error("resend_activation_error", "reason", "cannot clear activation token", "error", err)
		}
		return errMailFailed
	}
	return nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperr.Validation("Please provide email and password!")
	}
	u, err := s.Repo.UserByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if u == nil || !hash.CheckPassword(u.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid credentials")
		return nil, apperr.Unauthorized("Incorrect email or password")
	}
	if !u.AccountActivated {
		l.Warn("login_failed", "status", 401, "reason", "account not activated", "user_id", u.ID)
		return nil, apperr.Unauthorized("Your account has not yet been activated")
	}
	return s.issue(u)
}

// ForgotPassword mails a reset link valid for ResetTTL.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "auth.forgot_password")

	if strings.TrimSpace(email) == "" {
		return apperr.Validation("Please provide an email address")
	}
	u, err := s.Repo.UserByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("There is no user with email address %s", email)
	}
	if err != nil {
		return err
	}

	plain, digest, err := hash.NewToken()
	if err != nil {
		return err
	}
	exp := s.now().Add(ResetTTL)
	u.PasswordResetToken = digest
	u.PasswordResetExpires = &exp
	if err := s.Repo.UpdateUser(ctx, u, map[string]any{"password_reset_token": digest, "password_reset_expires": exp}); err != nil {
		return err
	}

	if err := s.Mailer.SendPasswordReset(ctx, mail.Recipient{Email: u.Email, FirstName: u.FirstName}, s.link("reset-password", plain)); err != nil {
		l.Error("forgot_password_error", "status", 500, "reason", "reset mail failed", "error", err)
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
		if err := s.Repo.UpdateUser(ctx, u, map[string]any{"password_reset_token": "", "password_reset_expires": nil}); err != nil {
			l.Error("forgot_password_error", "reason", "cannot clear reset token", "error", err)
		}
		return errMailFailed
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirm string) (*Session, error) {
	u, err := s.Repo.UserByResetToken(ctx, hash.Digest(token))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Validation("Token is invalid or has expired")
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordResetExpires == nil || !u.PasswordResetExpires.After(s.now()) {
		return nil, apperr.Validation("Token is invalid or has expired")
	}

	fields := map[string]any{"password_reset_token": "", "password_reset_expires": nil}
	if err := s.setPassword(ctx, u, password, confirm, fields); err != nil {
		return nil, err
	}
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	return s.issue(u)
}

// UpdatePassword changes the password of a logged-in user who proves the
// current one.
func (s *AuthService) UpdatePassword(ctx context.Context, u *models.User, current, password, confirm string) (*Session, error) {
	if !hash.CheckPassword(u.PasswordHash, current) {
		return nil, apperr.Unauthorized("Your current password is wrong")
	}
	if err := s.setPassword(ctx, u, password, confirm, map[string]any{}); err != nil {
		return nil, err
	}
	return s.issue(u)
}

// setPassword stores a new hash. The change time is backdated one second so a
// token issued right after the change stays valid.
func (s *AuthService) setPassword(ctx context.Context, u *models.User, password, confirm string, fields map[string]any) error {
	if err := models.ValidatePassword(password, confirm); err != nil {
		return err
	}
	pw, err := hash.HashPassword(password)
	if err != nil {
		return err
	}
	changed := s.now().Add(-time.Second)
	fields["password_hash"] = pw
	fields["password_changed_at"] = changed
	if err := s.Repo.UpdateUser(ctx, u, fields); err != nil {
		return err
	}
	u.PasswordHash = pw
	u.PasswordChangedAt = &changed

	publish(ctx, s.Events, events.TopicUser, u.ID.String(),
		events.NewEvent("user.password_changed", "user", u.ID.String(), u.ID.String(), nil))
	return nil
}
