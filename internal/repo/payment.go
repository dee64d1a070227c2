package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
)

var ErrForeignPayment = apperr.Forbidden("This payment belongs to another account")

type UpsertResult int

const (
	PaymentUnchanged UpsertResult = iota
	PaymentCreated
	PaymentUpdated
)

// UpsertPayment stores p keyed by its gateway id. An existing row is updated
// only when the status differs and never changes owner. p is replaced by the
// stored row.
func (r *GormRepo) UpsertPayment(ctx context.Context, p *models.Payment) (UpsertResult, error) {
	result := PaymentUnchanged
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Payment
		err := tx.Where("gateway_id = ?", p.GatewayID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(p).Error; err != nil {
				return err
			}
			result = PaymentCreated
			return nil
		case err != nil:
			return err
		}
		if existing.UserID != p.UserID {
			return ErrForeignPayment
		}

		if existing.Status != p.Status {
			fields := map[string]any{"status": p.Status}
			if p.PaidAt != nil {
				fields["paid_at"] = p.PaidAt
			}
			if err := tx.Model(&existing).Updates(fields).Error; err != nil {
				return err
			}
			existing.Status = p.Status
			if p.PaidAt != nil {
				existing.PaidAt = p.PaidAt
			}
			result = PaymentUpdated
		}
		*p = existing
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.UpsertPayment(ctx, p)
	}
	return result, err
}

func (r *GormRepo) PaymentByGatewayID(ctx context.Context, userID uuid.UUID, gatewayID int64) (*models.Payment, error) {
	var p models.Payment
	if err := r.DB.WithContext(ctx).Where("gateway_id = ? AND user_id = ?", gatewayID, userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
