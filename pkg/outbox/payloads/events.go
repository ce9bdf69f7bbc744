package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartcanteen/canteen-backend/pkg/enums"
)

// OrderLine is one reserved line of a placed order.
type OrderLine struct {
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Quantity   int             `json:"quantity"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// OrderPlacedEvent is emitted once an order and its reservations commit.
type OrderPlacedEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	UserID     *uuid.UUID      `json:"user_id,omitempty"`
	TotalPrice decimal.Decimal `json:"total_price"`
	PickupTime *string         `json:"pickup_time,omitempty"`
	Items      []OrderLine     `json:"items"`
}

// OrderStatusChangedEvent is emitted for every committed transition, including cancellation.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	UserID  *uuid.UUID        `json:"user_id,omitempty"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
}

// NotificationRequestedEvent asks a delivery channel to forward a stored notification.
type NotificationRequestedEvent struct {
	NotificationID uuid.UUID `json:"notification_id"`
	UserID         uuid.UUID `json:"user_id"`
	Message        string    `json:"message"`
}

// InventoryLowStockEvent fires when a reservation leaves stock below the threshold.
type InventoryLowStockEvent struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	StockLevel int       `json:"stock_level"`
	Threshold  int       `json:"threshold"`
}

// PaymentRecordedEvent mirrors a payment row written from a processor report.
type PaymentRecordedEvent struct {
	PaymentID  uuid.UUID           `json:"payment_id"`
	OrderID    uuid.UUID           `json:"order_id"`
	PaymentRef string              `json:"payment_ref"`
	Amount     decimal.Decimal     `json:"amount"`
	Method     enums.PaymentMethod `json:"payment_method"`
	Status     enums.PaymentStatus `json:"payment_status"`
}
