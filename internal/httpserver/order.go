package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/query"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
)

type OrderHandler struct {
	Orders *service.OrderService
	// Admin sees every order, Mine only the caller's.
	Admin *Resource[models.Order, *models.Order]
	Mine  *Resource[models.Order, *models.Order]
}

func ownedBy(c echo.Context) (repo.Scope, error) {
	u := CurrentUser(c)
	if u == nil {
		return nil, errNotLoggedIn
	}
	return repo.Where("user_id", u.ID), nil
}

// NewOrderResources builds the admin and the owner views of orders. Admins
// may change the status and the shipping details; items, totals and the
// payment reference are fixed at checkout.
func NewOrderResources(db *gorm.DB) (admin, mine *Resource[models.Order, *models.Order]) {
	spec := query.MustSpec(db, &models.Order{})
	admin = &Resource[models.Order, *models.Order]{
		Name:    "order",
		Repo:    repo.NewRepo[models.Order](db),
		Spec:    spec,
		Preload: []string{"Items", "User"},
		Prepare: func(c echo.Context, rec, old *models.Order) error {
			if old == nil {
				return nil
			}
			rec.UserID = old.UserID
			rec.User = old.User
			rec.Items = old.Items
			rec.TotalQty = old.TotalQty
			rec.TotalCost = old.TotalCost
			rec.PaymentReference = old.PaymentReference
			return nil
		},
	}
	mine = &Resource[models.Order, *models.Order]{
		Name:    "order",
		Repo:    admin.Repo,
		Spec:    spec,
		Preload: []string{"Items"},
		Scope:   ownedBy,
	}
	return admin, mine
}

// Checkout turns the caller's cart into an order paid by payment_reference.
func (h *OrderHandler) Checkout(c echo.Context) error {
	var in service.CheckoutInput
	if err := bindBody(c, &in); err != nil {
		return err
	}
	order, err := h.Orders.Checkout(c.Request().Context(), CurrentUser(c), in)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, order)
}
