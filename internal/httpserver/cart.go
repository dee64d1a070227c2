package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
)

type CartHandler struct {
	Carts *service.CartService
}

func (h *CartHandler) Get(c echo.Context) error {
	cart, err := h.Carts.Get(c.Request().Context(), CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(c echo.Context) error {
	var in service.AddItemInput
	if err := bindBody(c, &in); err != nil {
		return err
	}
	cart, err := h.Carts.AddItem(c.Request().Context(), CurrentUser(c).ID, in)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, cart)
}

// UpdateItems sets new quantities and lists the entries it could not apply.
func (h *CartHandler) UpdateItems(c echo.Context) error {
	var in service.UpdateItemsInput
	if err := bindBody(c, &in); err != nil {
		return err
	}
	cart, skipped, err := h.Carts.UpdateItems(c.Request().Context(), CurrentUser(c).ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"data":    cart,
		"skipped": skipped,
	})
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	productID, err := paramID(c, "productId")
	if err != nil {
		return err
	}
	cart, err := h.Carts.RemoveItem(c.Request().Context(), CurrentUser(c).ID, productID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, cart)
}

func (h *CartHandler) Empty(c echo.Context) error {
	if err := h.Carts.Empty(c.Request().Context(), CurrentUser(c).ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
