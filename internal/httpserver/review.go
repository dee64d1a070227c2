package httpserver

import (
	"errors"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/query"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
)

type ReviewHandler struct {
	Resource *Resource[models.Review, *models.Review]
}

// NewReviewResource wires the review hooks. Reviews are created under
// /products/:id/reviews; only the author or an admin may change them, and
// every write refreshes the product rating.
func NewReviewResource(db *gorm.DB, r *repo.GormRepo, reviews *service.ReviewService) *Resource[models.Review, *models.Review] {
	return &Resource[models.Review, *models.Review]{
		Name:    "review",
		Repo:    repo.NewRepo[models.Review](db),
		Spec:    query.MustSpec(db, &models.Review{}),
		Preload: []string{"User"},
		Authorize: func(c echo.Context, rec *models.Review) error {
			u := CurrentUser(c)
			if u == nil || (u.Role != models.RoleAdmin && u.ID != rec.UserID) {
				return errNoPermission
			}
			return nil
		},
		Prepare: func(c echo.Context, rec, old *models.Review) error {
			rec.User = nil
			if old != nil {
				rec.ProductID = old.ProductID
				rec.UserID = old.UserID
				return nil
			}

			productID, err := paramID(c, "id")
			if err != nil {
				return err
			}
			if _, err := r.GetProduct(c.Request().Context(), productID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("No product found with that ID")
				}
				return err
			}
			rec.ProductID = productID
			rec.UserID = CurrentUser(c).ID
			return nil
		},
		AfterWrite: func(c echo.Context, rec *models.Review, created bool) error {
			action := "updated"
			if created {
				action = "created"
			}
			return reviews.Reviewed(c.Request().Context(), rec, action)
		},
		AfterDelete: func(c echo.Context, rec *models.Review) error {
			return reviews.Reviewed(c.Request().Context(), rec, "deleted")
		},
	}
}

// ForProduct lists the reviews of the product named by :id.
func (h *ReviewHandler) ForProduct(c echo.Context) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	return h.Resource.ListWith(c, repo.Where("product_id", productID))
}
