package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
)

// CreateOrderFromCart turns the user's cart into order in one transaction.
// order carries the shipping details and payment reference; items and totals
// are filled from the cart with the product prices at this moment.
func (r *GormRepo) CreateOrderFromCart(ctx context.Context, userID uuid.UUID, order *models.Order) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		err := tx.Preload("Items", preloadCartItems).Where("user_id = ?", userID).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && cart.IsEmpty()) {
			return apperr.Validation("Your cart is empty")
		}
		if err != nil {
			return err
		}

		var payment models.Payment
		err = tx.Where("reference = ? AND user_id = ?", order.PaymentReference, userID).First(&payment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Validation("No payment found for reference %s", order.PaymentReference)
		}
		if err != nil {
			return err
		}
		if payment.Status != models.PaymentSuccess {
			return apperr.Validation("Payment %s has status %s", payment.Reference, payment.Status)
		}

		items := make([]models.OrderItem, 0, len(cart.Items))
		for _, ci := range cart.Items {
			var p models.Product
			if err := tx.Where("id = ?", ci.ProductID).First(&p).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.Validation("A product in your cart is no longer available")
				}
				return err
			}

			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", p.ID, ci.Qty).
				Updates(map[string]any{
					"stock":     gorm.Expr("stock - ?", ci.Qty),
					"available": gorm.Expr("stock - ? > 0", ci.Qty),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.Validation("Not enough stock for %s", p.Title)
			}

			items = append(items, models.OrderItem{
				ProductID: p.ID,
				Title:     p.Title,
				Qty:       ci.Qty,
				Price:     p.Price,
			})
		}

		order.UserID = userID
		order.Items = items
		order.Status = models.OrderPending
		order.Recalculate()

		if payment.Amount.LessThan(order.TotalCost) {
			return apperr.Validation("Payment of %s does not cover the order total of %s",
				payment.Amount.StringFixed(2), order.TotalCost.StringFixed(2))
		}

		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("An order was already placed with payment %s", order.PaymentReference)
			}
			return err
		}
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
		}
		if err := tx.Create(&order.Items).Error; err != nil {
			return err
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&cart).Error
	})
}
