package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index"                json:"created_at"`
	UpdatedAt time.Time `                            json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Meta exposes the identity fields to generic code working on *T.
func (b *Base) Meta() *Base { return b }

// Validator is implemented by entities with schema rules.
type Validator interface {
	Validate() error
}

// All lists every persisted entity for migrations.
func All() []any {
	return []any{
		&User{},
		&Category{},
		&Product{},
		&Review{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Payment{},
	}
}
