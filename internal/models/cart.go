package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Cart struct {
	Base
	UserID    uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"               json:"user_id"`
	Items     []CartItem      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	TotalQty  int             `gorm:"not null;default:0"                           json:"total_qty"`
	TotalCost decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"        json:"total_cost"`
	Version   int             `gorm:"not null;default:1"                           json:"version"`
}

type CartItem struct {
	Base
	CartID    uuid.UUID `gorm:"type:uuid;index;not null"                        json:"-"`
	ProductID uuid.UUID `gorm:"type:uuid;not null"                              json:"product_id"`
	Product   *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
	Qty       int       `gorm:"not null;check:qty > 0"                          json:"qty"`
}

type ItemQty struct {
	ProductID uuid.UUID `json:"product_id"`
	Qty       int       `json:"qty"`
}

type SkippedItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Qty       int       `json:"qty"`
	Reason    string    `json:"reason"`
}

const (
	SkipNotInCart   = "product is not in the cart"
	SkipNonPositive = "quantity must be greater than zero"
)

func (c *Cart) find(productID uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem increments the line for product or appends a new one.
func (c *Cart) AddItem(product *Product, qty int) {
	if i := c.find(product.ID); i >= 0 {
		c.Items[i].Qty += qty
		c.Items[i].Product = product
	} else {
		c.Items = append(c.Items, CartItem{CartID: c.ID, ProductID: product.ID, Product: product, Qty: qty})
	}
	c.Recalculate()
}

// UpdateItems replaces quantities of existing lines and returns the entries
// that were not applied.
func (c *Cart) UpdateItems(updates []ItemQty) []SkippedItem {
	var skipped []SkippedItem
	for _, u := range updates {
		if u.Qty <= 0 {
			skipped = append(skipped, SkippedItem{ProductID: u.ProductID, Qty: u.Qty, Reason: SkipNonPositive})
			continue
		}
		i := c.find(u.ProductID)
		if i < 0 {
			skipped = append(skipped, SkippedItem{ProductID: u.ProductID, Qty: u.Qty, Reason: SkipNotInCart})
			continue
		}
		c.Items[i].Qty = u.Qty
	}
	c.Recalculate()
	return skipped
}

// RemoveItem deletes the line for productID; false when there is none.
func (c *Cart) RemoveItem(productID uuid.UUID) bool {
	i := c.find(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.Recalculate()
	return true
}

// Recalculate derives the totals from the current product prices. Lines
// without a loaded product are dropped.
func (c *Cart) Recalculate() {
	items := c.Items[:0]
	qty := 0
	cost := decimal.Zero
	for _, it := range c.Items {
		if it.Product == nil {
			continue
		}
		items = append(items, it)
		qty += it.Qty
		cost = cost.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	c.Items = items
	c.TotalQty = qty
	c.TotalCost = cost
}

func (c *Cart) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }
