package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartcanteen/canteen-backend/pkg/enums"
)

// Order is owned by a user until that user is deleted; the history survives
// with a NULL user_id.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID        `gorm:"column:user_id;type:uuid" json:"user_id"`
	User       *User             `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	Status     enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	TotalPrice decimal.Decimal   `gorm:"column:total_price;type:numeric(10,2);not null" json:"total_price"`
	OrderDate  time.Time         `gorm:"column:order_date;type:date;not null" json:"order_date"`
	PickupTime *string           `gorm:"column:pickup_time;type:time" json:"pickup_time"`
	Items      []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OwnedBy reports whether userID is the order's owner.
func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o != nil && o.UserID != nil && *o.UserID == userID
}

// OrderItem snapshots one line of an order. Subtotal is fixed at creation.
type OrderItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	MenuItemID uuid.UUID       `gorm:"column:menu_item_id;type:uuid;not null" json:"menu_item_id"`
	Quantity   int             `gorm:"column:quantity;not null;check:chk_order_items_quantity,quantity > 0" json:"quantity"`
	Subtotal   decimal.Decimal `gorm:"column:subtotal;type:numeric(10,2);not null" json:"subtotal"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
