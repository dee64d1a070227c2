package service

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type ReviewService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

// Reviewed refreshes the rating aggregates of the review's product after a
// review was created, changed or deleted.
func (s *ReviewService) Reviewed(ctx context.Context, r *models.Review, action string) error {
	if err := s.Repo.RecalculateRatings(ctx, r.ProductID); err != nil {
		return err
	}
	publish(ctx, s.Events, events.TopicReview, r.ProductID.String(),
		events.NewEvent("review."+action, "review", r.ID.String(), r.UserID.String(), map[string]any{
			"product_id": r.ProductID,
			"rating":     r.Rating,
		}))
	return nil
}
