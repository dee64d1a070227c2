package models

import (
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
)

const (
	DefaultRatingsAverage = 5.0
	MinRating             = 1
	MaxRating             = 5
)

type Product struct {
	Base
	SKU             string           `gorm:"index"                          json:"sku"`
	Title           string           `gorm:"uniqueIndex;not null"           json:"title"`
	Slug            string           `gorm:"index"                          json:"slug"`
	Price           decimal.Decimal  `gorm:"type:numeric(12,2);not null"    json:"price"`
	PriceDiscount   *decimal.Decimal `gorm:"type:numeric(12,2)"             json:"price_discount,omitempty"`
	Description     string           `gorm:"not null"                       json:"description"`
	Images          []string         `gorm:"serializer:json"                json:"images"`
	Stock           int              `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	Available       bool             `gorm:"not null;default:false"         json:"available"`
	RatingsAverage  float64          `gorm:"not null;default:5"             json:"ratings_average"`
	RatingsQuantity int              `gorm:"not null;default:0"             json:"ratings_quantity"`

	Categories  []Category  `gorm:"many2many:product_categories;constraint:OnDelete:CASCADE" json:"categories,omitempty"`
	CategoryIDs []uuid.UUID `gorm:"-"                                  json:"category_ids,omitempty"`
	Reviews     []Review    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"reviews,omitempty"`
}

func (p *Product) BeforeSave(tx *gorm.DB) error {
	p.Slug = slug.Make(p.Title)
	p.Available = p.Stock > 0
	if p.RatingsAverage == 0 {
		p.RatingsAverage = DefaultRatingsAverage
	}
	p.RatingsAverage = RoundRating(p.RatingsAverage)
	return nil
}

func (p *Product) AfterFind(tx *gorm.DB) error {
	p.Available = p.Stock > 0
	return nil
}

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return apperr.Validation("A product must have a title")
	}
	if strings.TrimSpace(p.Description) == "" {
		return apperr.Validation("A product must have a description")
	}
	if !p.Price.IsPositive() {
		return apperr.Validation("A product must have a price greater than zero")
	}
	if p.PriceDiscount != nil {
		if p.PriceDiscount.IsNegative() || !p.PriceDiscount.LessThan(p.Price) {
			return apperr.Validation("Discount price (%s) should be below the regular price", p.PriceDiscount.StringFixed(2))
		}
	}
	if p.Stock < 0 {
		return apperr.Validation("Stock cannot be negative")
	}
	if len(p.Images) == 0 {
		return apperr.Validation("A product must have at least one image")
	}
	if p.RatingsAverage != 0 && (p.RatingsAverage < MinRating || p.RatingsAverage > MaxRating) {
		return apperr.Validation("Rating must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}

func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

type Category struct {
	Base
	Title     string `gorm:"uniqueIndex;not null" json:"title"`
	Slug      string `gorm:"uniqueIndex"          json:"slug"`
	Thumbnail string `gorm:"not null"             json:"thumbnail"`
}

func (c *Category) BeforeSave(tx *gorm.DB) error {
	c.Slug = slug.Make(c.Title)
	return nil
}

func (c *Category) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return apperr.Validation("A category must have a title")
	}
	if strings.TrimSpace(c.Thumbnail) == "" {
		return apperr.Validation("A category must have a thumbnail")
	}
	return nil
}
