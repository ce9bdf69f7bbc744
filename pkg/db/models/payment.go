package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartcanteen/canteen-backend/pkg/enums"
)

// Payment records one attempt reported by the external processor.
type Payment struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID    uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	Order      *Order              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`
	PaymentRef string              `gorm:"column:payment_ref;not null" json:"payment_ref"`
	Amount     decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null" json:"amount"`
	Method     enums.PaymentMethod `gorm:"column:payment_method;type:text;not null" json:"payment_method"`
	Status     enums.PaymentStatus `gorm:"column:payment_status;type:text;not null" json:"payment_status"`
	ReceiptURL *string             `gorm:"column:receipt_url" json:"receipt_url,omitempty"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
