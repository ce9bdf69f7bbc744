package orders

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/smartcanteen/canteen-backend/internal/users"
	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	"github.com/smartcanteen/canteen-backend/pkg/enums"
	pkgerrors "github.com/smartcanteen/canteen-backend/pkg/errors"
)

func TestCanTransitionStateMachine(t *testing.T) {
	all := []enums.OrderStatus{
		enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.OrderStatusPreparing,
		enums.OrderStatusReady, enums.OrderStatusCompleted, enums.OrderStatusCancelled,
	}
	legal := map[[2]enums.OrderStatus]bool{
		{enums.OrderStatusPending, enums.OrderStatusConfirmed}:   true,
		{enums.OrderStatusConfirmed, enums.OrderStatusPreparing}: true,
		{enums.OrderStatusPreparing, enums.OrderStatusReady}:     true,
		{enums.OrderStatusReady, enums.OrderStatusCompleted}:     true,
		{enums.OrderStatusPending, enums.OrderStatusCancelled}:   true,
		{enums.OrderStatusConfirmed, enums.OrderStatusCancelled}: true,
		{enums.OrderStatusPreparing, enums.OrderStatusCancelled}: true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]enums.OrderStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.Empty(t, NextStatuses(enums.OrderStatusCompleted))
	assert.Empty(t, NextStatuses(enums.OrderStatusCancelled))
	assert.False(t, CanTransition(enums.OrderStatus("lost"), enums.OrderStatusPending))
}

func TestCanAccessOrder(t *testing.T) {
	owner := uuid.New()
	order := &models.Order{ID: uuid.New(), UserID: &owner}
	orphan := &models.Order{ID: uuid.New()}

	cases := []struct {
		name   string
		user   users.Identity
		order  *models.Order
		action Action
		want   bool
	}{
		{"owner reads", users.Identity{ID: owner, Role: enums.RoleStudent}, order, ActionRead, true},
		{"owner cancels", users.Identity{ID: owner, Role: enums.RoleStudent}, order, ActionCancel, true},
		{"owner cannot write", users.Identity{ID: owner, Role: enums.RoleStudent}, order, ActionWrite, false},
		{"stranger cannot read", users.Identity{ID: uuid.New(), Role: enums.RoleStudent}, order, ActionRead, false},
		{"stranger cannot cancel", users.Identity{ID: uuid.New(), Role: enums.RoleStudent}, order, ActionCancel, false},
		{"staff writes", users.Identity{ID: uuid.New(), Role: enums.RoleStaff}, order, ActionWrite, true},
		{"admin cancels", users.Identity{ID: uuid.New(), Role: enums.RoleAdmin}, order, ActionCancel, true},
		{"staff reads orphan", users.Identity{ID: uuid.New(), Role: enums.RoleStaff}, orphan, ActionRead, true},
		{"student reads orphan", users.Identity{ID: owner, Role: enums.RoleStudent}, orphan, ActionRead, false},
		{"nil order", users.Identity{ID: owner, Role: enums.RoleAdmin}, nil, ActionRead, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanAccessOrder(tc.user, tc.order, tc.action))
		})
	}
}

func TestMayTransitionPicksAction(t *testing.T) {
	owner := uuid.New()
	order := &models.Order{UserID: &owner}
	student := users.Identity{ID: owner, Role: enums.RoleStudent}

	assert.True(t, MayTransition(student, order, enums.OrderStatusCancelled))
	assert.False(t, MayTransition(student, order, enums.OrderStatusConfirmed))
	assert.Equal(t, ActionCancel, ActionFor(enums.OrderStatusCancelled))
	assert.Equal(t, ActionWrite, ActionFor(enums.OrderStatusReady))
}

func TestRecomputeAndVerifyTotal(t *testing.T) {
	items := []models.OrderItem{
		{Quantity: 2, Subtotal: Subtotal(decimal.RequireFromString("150.00"), 2)},
		{Quantity: 1, Subtotal: Subtotal(decimal.RequireFromString("300.00"), 1)},
		{Quantity: 3, Subtotal: Subtotal(decimal.RequireFromString("0.10"), 3)},
	}
	total := RecomputeTotal(items)
	assert.Equal(t, "600.30", total.StringFixed(2))
	assert.True(t, RecomputeTotal(nil).IsZero())

	order := &models.Order{TotalPrice: total, Items: items}
	assert.NoError(t, VerifyTotal(order))

	order.TotalPrice = decimal.RequireFromString("600.31")
	assert.True(t, pkgerrors.IsCode(VerifyTotal(order), pkgerrors.CodeInconsistent))
}
