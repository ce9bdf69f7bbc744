package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	"github.com/smartcanteen/canteen-backend/pkg/enums"
)

// LineInput is one requested (menu item, quantity) pair.
type LineInput struct {
	MenuItemID uuid.UUID
	Quantity   int
}

// PlaceOrderInput carries a create request. PickupTime is "HH:MM" or "HH:MM:SS".
type PlaceOrderInput struct {
	Lines      []LineInput
	PickupTime *string
}

// ListParams filters and pages ListOrdersFor.
type ListParams struct {
	Status *enums.OrderStatus
	Limit  int
	Cursor string
}

// OrderItemDTO is the transport shape of a line item.
type OrderItemDTO struct {
	ID         uuid.UUID       `json:"id"`
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Quantity   int             `json:"quantity"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// OrderDTO is the transport shape of an order with its items.
type OrderDTO struct {
	ID         uuid.UUID           `json:"id"`
	UserID     *uuid.UUID          `json:"user_id"`
	Status     enums.OrderStatus   `json:"status"`
	TotalPrice decimal.Decimal     `json:"total_price"`
	OrderDate  string              `json:"order_date"`
	PickupTime *string             `json:"pickup_time"`
	Items      []OrderItemDTO      `json:"items"`
	Next       []enums.OrderStatus `json:"next_statuses"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ID:         item.ID,
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Subtotal:   item.Subtotal,
		})
	}
	return &OrderDTO{
		ID:         o.ID,
		UserID:     o.UserID,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
		OrderDate:  o.OrderDate.Format(time.DateOnly),
		PickupTime: o.PickupTime,
		Items:      items,
		Next:       NextStatuses(o.Status),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func FromModels(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
