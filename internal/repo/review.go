package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

// RecalculateRatings refreshes the product's rating count and average from
// its reviews. Products without reviews get the default average.
func (r *GormRepo) RecalculateRatings(ctx context.Context, productID uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var agg struct {
			Quantity int64
			Average  sql.NullFloat64
		}
		err := tx.Model(&models.Review{}).
			Select("COUNT(*) AS quantity, AVG(rating) AS average").
			Where("product_id = ?", productID).
			Scan(&agg).Error
		if err != nil {
			return err
		}

		avg := models.DefaultRatingsAverage
		if agg.Quantity > 0 && agg.Average.Valid {
			avg = models.RoundRating(agg.Average.Float64)
		}

		return tx.Model(&models.Product{}).
			Where("id = ?", productID).
			UpdateColumns(map[string]any{
				"ratings_quantity": agg.Quantity,
				"ratings_average":  avg,
			}).Error
	})
}
