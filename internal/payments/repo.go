package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	"github.com/smartcanteen/canteen-backend/pkg/enums"
)

// Repository persists payment attempts.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) OrderExistsTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateTx(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	return tx.WithContext(ctx).Create(payment).Error
}

// Latest returns the newest payment for the order, optionally restricted to a
// status. It returns gorm.ErrRecordNotFound when there is none.
func (r *Repository) Latest(ctx context.Context, orderID uuid.UUID, status *enums.PaymentStatus) (*models.Payment, error) {
	q := r.db.WithContext(ctx).Where("order_id = ?", orderID)
	if status != nil {
		q = q.Where("payment_status = ?", *status)
	}
	var payment models.Payment
	if err := q.Order("created_at DESC").Order("id DESC").First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}
