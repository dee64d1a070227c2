package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

// profileFields are the columns a user may change about themselves.
var profileFields = []string{
	"first_name", "last_name", "email", "phone", "photo",
	"shipping_address", "city", "state", "postal_code",
}

type UserService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

// UpdateMe applies whitelisted profile fields. Password fields are rejected,
// any other key is ignored.
func (s *UserService) UpdateMe(ctx context.Context, u *models.User, fields map[string]any) (*models.User, error) {
	if _, ok := fields["password"]; ok {
		return nil, apperr.Validation("This route is not for password updates. Please use /update-my-password")
	}
	if _, ok := fields["password_confirm"]; ok {
		return nil, apperr.Validation("This route is not for password updates. Please use /update-my-password")
	}

	updated := *u
	changes := map[string]any{}
	for _, name := range profileFields {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		v, ok := raw.(string)
		if !ok {
			return nil, apperr.Validation("%s must be a string", name)
		}
		v = strings.TrimSpace(v)
		switch name {
		case "first_name":
			updated.FirstName = v
		case "last_name":
			updated.LastName = v
		case "email":
			v = strings.ToLower(v)
			updated.Email = v
		case "phone":
			updated.Phone = v
		case "photo":
			updated.Photo = v
		case "shipping_address":
			updated.ShippingAddress = v
		case "city":
			updated.City = v
		case "state":
			updated.State = v
		case "postal_code":
			updated.PostalCode = v
		}
		changes[name] = v
	}
	if len(changes) == 0 {
		return u, nil
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	if err := s.Repo.UpdateUser(ctx, u, changes); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	*u = updated

	publish(ctx, s.Events, events.TopicUser, u.ID.String(),
		events.NewEvent("user.updated", "user", u.ID.String(), u.ID.String(), changes))
	return u, nil
}

// DeleteMe deactivates the account. The row is kept.
func (s *UserService) DeleteMe(ctx context.Context, u *models.User) error {
	if err := s.Repo.UpdateUser(ctx, u, map[string]any{"active": false}); err != nil {
		return err
	}
	u.Active = false

	publish(ctx, s.Events, events.TopicUser, u.ID.String(),
		events.NewEvent("user.deactivated", "user", u.ID.String(), u.ID.String(), nil))
	return nil
}
