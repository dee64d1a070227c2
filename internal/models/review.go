package models

import (
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/apperr"
)

type Review struct {
	Base
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_product_user" json:"product_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_product_user" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"          json:"user,omitempty"`
	Rating    int       `gorm:"not null;check:rating BETWEEN 1 AND 5"                   json:"rating"`
	Review    string    `gorm:"type:text;not null"                                      json:"review"`
}

func (r *Review) Validate() error {
	if strings.TrimSpace(r.Review) == "" {
		return apperr.Validation("Review cannot be empty")
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		return apperr.Validation("Rating must be between %d and %d", MinRating, MaxRating)
	}
	if r.ProductID == uuid.Nil {
		return apperr.Validation("Review must belong to a product")
	}
	if r.UserID == uuid.Nil {
		return apperr.Validation("Review must belong to a user")
	}
	return nil
}
