package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentPending    = "pending"
	PaymentSuccess    = "success"
	PaymentFailed     = "failed"
	PaymentAbandoned  = "abandoned"
	PaymentOngoing    = "ongoing"
	PaymentProcessing = "processing"
	PaymentQueued     = "queued"
	PaymentReversed   = "reversed"
)

var PaymentStatuses = []string{
	PaymentPending, PaymentSuccess, PaymentFailed, PaymentAbandoned,
	PaymentOngoing, PaymentProcessing, PaymentQueued, PaymentReversed,
}

// Payment mirrors a gateway transaction. GatewayID is the processor-assigned id.
type Payment struct {
	Base
	UserID     uuid.UUID       `gorm:"type:uuid;index;not null"    json:"user_id"`
	GatewayID  int64           `gorm:"uniqueIndex;not null"        json:"payment_id"`
	CustomerID int64           `                                   json:"customer_id"`
	Amount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency   string          `                                   json:"currency,omitempty"`
	Reference  string          `gorm:"index;not null"              json:"reference"`
	Status     string          `gorm:"not null;index"              json:"status"`
	PaidAt     *time.Time      `                                   json:"paid_at,omitempty"`
}
