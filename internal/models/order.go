package models

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/apperr"
)

const (
	OrderPending   = "pending"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
)

var OrderStatuses = []string{OrderPending, OrderShipped, OrderDelivered}

type Order struct {
	Base
	UserID           uuid.UUID       `gorm:"type:uuid;index;not null"                      json:"user_id"`
	User             *User           `gorm:"foreignKey:UserID"                             json:"user,omitempty"`
	Items            []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	TotalQty         int             `gorm:"not null"                                      json:"total_qty"`
	TotalCost        decimal.Decimal `gorm:"type:numeric(12,2);not null"                   json:"total_cost"`
	ShippingAddress  string          `gorm:"not null"                                      json:"shipping_address"`
	PostalCode       string          `                                                     json:"postal_code,omitempty"`
	City             string          `                                                     json:"city,omitempty"`
	State            string          `                                                     json:"state,omitempty"`
	Phone            string          `gorm:"not null"                                      json:"phone"`
	PaymentReference string          `gorm:"uniqueIndex;not null"                          json:"payment_reference"`
	Status           string          `gorm:"not null;default:pending;index"                json:"status"`
}

// OrderItem keeps the product title and price as they were at checkout.
type OrderItem struct {
	Base
	OrderID   uuid.UUID       `gorm:"type:uuid;index;not null"    json:"-"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null"          json:"product_id"`
	Title     string          `gorm:"not null"                    json:"title"`
	Qty       int             `gorm:"not null;check:qty > 0"      json:"qty"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
}

func (o *Order) Validate() error {
	if strings.TrimSpace(o.ShippingAddress) == "" {
		return apperr.Validation("Shipping address is required")
	}
	if strings.TrimSpace(o.Phone) == "" {
		return apperr.Validation("Phone number is required")
	}
	if !phonePattern.MatchString(o.Phone) {
		return apperr.Validation("Please provide a valid phone number")
	}
	if strings.TrimSpace(o.PaymentReference) == "" {
		return apperr.Validation("The payment reference is required to complete the order")
	}
	if !slices.Contains(OrderStatuses, o.Status) {
		return apperr.Validation("Status must be one of: %s", strings.Join(OrderStatuses, ", "))
	}
	return nil
}

// Recalculate derives totals from the snapshotted item prices.
func (o *Order) Recalculate() {
	qty := 0
	cost := decimal.Zero
	for _, it := range o.Items {
		qty += it.Qty
		cost = cost.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	o.TotalQty = qty
	o.TotalCost = cost
}
