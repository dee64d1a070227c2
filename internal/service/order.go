package service

import (
	"context"
	"strings"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type OrderService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

type CheckoutInput struct {
	ShippingAddress  string `json:"shipping_address"`
	PostalCode       string `json:"postal_code"`
	City             string `json:"city"`
	State            string `json:"state"`
	Phone            string `json:"phone"`
	PaymentReference string `json:"payment_reference"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Checkout turns the user's cart into a pending order paid by the payment
// with the given reference. Missing shipping details fall back to the
// user's profile.
func (s *OrderService) Checkout(ctx context.Context, u *models.User, in CheckoutInput) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.checkout", "user_id", u.ID)

	order := &models.Order{
		ShippingAddress:  firstNonEmpty(in.ShippingAddress, u.ShippingAddress),
		PostalCode:       firstNonEmpty(in.PostalCode, u.PostalCode),
		City:             firstNonEmpty(in.City, u.City),
		State:            firstNonEmpty(in.State, u.State),
		Phone:            firstNonEmpty(in.Phone, u.Phone),
		PaymentReference: strings.TrimSpace(in.PaymentReference),
		Status:           models.OrderPending,
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := s.Repo.CreateOrderFromCart(ctx, u.ID, order); err != nil {
		l.Warn("checkout_error", "reference", order.PaymentReference, "error", err)
		return nil, err
	}

	publish(ctx, s.Events, events.TopicOrder, u.ID.String(),
		events.NewEvent("order.created", "order", order.ID.String(), u.ID.String(), map[string]any{
			"total_qty":  order.TotalQty,
			"total_cost": order.TotalCost,
			"reference":  order.PaymentReference,
		}))
	l.Info("checkout_success", "order_id", order.ID, "total_cost", order.TotalCost.StringFixed(2))
	return order, nil
}
