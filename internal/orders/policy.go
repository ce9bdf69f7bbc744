package orders

import (
	"github.com/smartcanteen/canteen-backend/internal/users"
	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	"github.com/smartcanteen/canteen-backend/pkg/enums"
)

// Action is what a caller wants to do with an order.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionCancel Action = "cancel"
)

// CanAccessOrder decides whether user may perform action on order.
// Staff and admins may do anything; owners may read and cancel their own orders.
func CanAccessOrder(user users.Identity, order *models.Order, action Action) bool {
	if order == nil {
		return false
	}
	if user.IsStaff() {
		return true
	}
	switch action {
	case ActionRead, ActionCancel:
		return order.OwnedBy(user.ID)
	default:
		return false
	}
}

// ActionFor maps a requested status to the action it requires.
func ActionFor(to enums.OrderStatus) Action {
	if to == enums.OrderStatusCancelled {
		return ActionCancel
	}
	return ActionWrite
}

// MayTransition combines the action lookup with CanAccessOrder. It does not
// check the state machine; see CanTransition.
func MayTransition(user users.Identity, order *models.Order, to enums.OrderStatus) bool {
	return CanAccessOrder(user, order, ActionFor(to))
}
