package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CartService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Qty       int       `json:"qty"`
	// Version, when set, must match the stored cart version.
	Version *int `json:"version,omitempty"`
}

type UpdateItemsInput struct {
	Items   []models.ItemQty `json:"items"`
	Version *int             `json:"version,omitempty"`
}

func checkVersion(cart *models.Cart, want *int) error {
	if want != nil && *want != cart.Version {
		return repo.ErrStaleCart
	}
	return nil
}

// Get returns the user's cart with totals computed from current prices.
func (s *CartService) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	qty, cost, lines := cart.TotalQty, cart.TotalCost, len(cart.Items)
	cart.Recalculate()
	if cart.TotalQty == qty && cart.TotalCost.Equal(cost) && len(cart.Items) == lines {
		return cart, nil
	}

	if err := s.Repo.SaveCart(ctx, cart); err != nil && !errors.Is(err, repo.ErrStaleCart) {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, in AddItemInput) (*models.Cart, error) {
	if in.ProductID == uuid.Nil {
		return nil, apperr.Validation("Please provide a product_id")
	}
	if in.Qty <= 0 {
		return nil, apperr.Validation("Quantity must be greater than zero")
	}

	product, err := s.Repo.GetProduct(ctx, in.ProductID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("No product found with that ID")
	}
	if err != nil {
		return nil, err
	}

	cart, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(cart, in.Version); err != nil {
		return nil, err
	}

	cart.AddItem(product, in.Qty)
	if err := s.Repo.SaveCart(ctx, cart); err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicCart, userID.String(),
		events.NewEvent("cart.item_added", "cart", cart.ID.String(), userID.String(),
			map[string]any{"product_id": product.ID, "qty": in.Qty}))
	return cart, nil
}

// UpdateItems sets quantities of lines already in the cart. Entries that
// could not be applied are returned.
func (s *CartService) UpdateItems(ctx context.Context, userID uuid.UUID, in UpdateItemsInput) (*models.Cart, []models.SkippedItem, error) {
	if len(in.Items) == 0 {
		return nil, nil, apperr.Validation("Please provide the items to update")
	}

	cart, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if err := checkVersion(cart, in.Version); err != nil {
		return nil, nil, err
	}

	skipped := cart.UpdateItems(in.Items)
	if err := s.Repo.SaveCart(ctx, cart); err != nil {
		return nil, nil, err
	}
	if len(skipped) > 0 {
		logging.FromContext(ctx).Info("cart_update_skipped", "user_id", userID, "skipped", len(skipped))
	}
	if skipped == nil {
		skipped = []models.SkippedItem{}
	}

	publish(ctx, s.Events, events.TopicCart, userID.String(),
		events.NewEvent("cart.items_updated", "cart", cart.ID.String(), userID.String(), in.Items))
	return cart, skipped, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !cart.RemoveItem(productID) {
		return nil, apperr.NotFound("Item not found in cart")
	}
	if err := s.Repo.SaveCart(ctx, cart); err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicCart, userID.String(),
		events.NewEvent("cart.item_removed", "cart", cart.ID.String(), userID.String(),
			map[string]any{"product_id": productID}))
	return cart, nil
}

// Empty deletes the cart; the next Get creates a new one.
func (s *CartService) Empty(ctx context.Context, userID uuid.UUID) error {
	if err := s.Repo.DeleteCart(ctx, userID); err != nil {
		return err
	}
	publish(ctx, s.Events, events.TopicCart, userID.String(),
		events.NewEvent("cart.emptied", "cart", "", userID.String(), nil))
	return nil
}
