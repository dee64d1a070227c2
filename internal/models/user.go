package models

import (
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
)

const (
	RoleUser   = "user"
	RoleAdmin  = "admin"
	RoleEditor = "editor"

	DefaultPhoto      = "default.jpeg"
	MinPasswordLength = 8
)

var (
	Roles        = []string{RoleUser, RoleAdmin, RoleEditor}
	phonePattern = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)
)

type User struct {
	Base
	FirstName       string `gorm:"not null"                 json:"first_name"`
	LastName        string `gorm:"not null"                 json:"last_name"`
	Email           string `gorm:"uniqueIndex;not null"     json:"email"`
	Phone           string `                                json:"phone,omitempty"`
	Photo           string `gorm:"not null;default:default.jpeg" json:"photo"`
	Role            string `gorm:"not null;default:user"    json:"role"`
	ShippingAddress string `                                json:"shipping_address,omitempty"`
	City            string `                                json:"city,omitempty"`
	State           string `                                json:"state,omitempty"`
	PostalCode      string `                                json:"postal_code,omitempty"`

	AccountActivated bool `gorm:"not null;default:false" json:"account_activated"`
	Active           bool `gorm:"not null;default:true"  json:"-"`

	PasswordHash         string     `gorm:"not null" json:"-"`
	PasswordChangedAt    *time.Time `                json:"-"`
	PasswordResetToken   string     `gorm:"index"    json:"-"`
	PasswordResetExpires *time.Time `                json:"-"`
	ActivationToken      string     `gorm:"index"    json:"-"`
	ActivationExpires    *time.Time `                json:"-"`
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Photo == "" {
		u.Photo = DefaultPhoto
	}
	return nil
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.FirstName) == "" {
		return apperr.Validation("Please tell us your first name")
	}
	if strings.TrimSpace(u.LastName) == "" {
		return apperr.Validation("Please tell us your last name")
	}
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if u.Phone != "" && !phonePattern.MatchString(u.Phone) {
		return apperr.Validation("Please provide a valid phone number")
	}
	if !slices.Contains(Roles, u.Role) {
		return apperr.Validation("Role must be one of: %s", strings.Join(Roles, ", "))
	}
	return nil
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.Validation("Please provide your email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.Validation("Please provide a valid email")
	}
	return nil
}

func ValidatePassword(password, confirm string) error {
	if len(password) < MinPasswordLength {
		return apperr.Validation("Password must have at least %d characters", MinPasswordLength)
	}
	if password != confirm {
		return apperr.Validation("Passwords are not the same")
	}
	return nil
}

// ChangedPasswordAfter reports whether the password changed after the token
// was issued. Both instants are compared at second precision.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
