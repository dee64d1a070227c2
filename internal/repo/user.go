package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(u).Error
}

// UserByEmail finds an active user.
func (r *GormRepo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).
		Where("email = ? AND active = ?", strings.ToLower(strings.TrimSpace(email)), true).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserByID finds an active user.
func (r *GormRepo) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormRepo) UserByActivationToken(ctx context.Context, digest string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("activation_token = ? AND active = ?", digest, true).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormRepo) UserByResetToken(ctx context.Context, digest string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("password_reset_token = ? AND active = ?", digest, true).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser writes the given columns only.
func (r *GormRepo) UpdateUser(ctx context.Context, u *models.User, fields map[string]any) error {
	return r.DB.WithContext(ctx).Model(u).Updates(fields).Error
}
