package orders

import (
	"github.com/shopspring/decimal"

	"github.com/smartcanteen/canteen-backend/internal/inventory"
	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	pkgerrors "github.com/smartcanteen/canteen-backend/pkg/errors"
)

// RecomputeTotal sums line subtotals.
func RecomputeTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total
}

// Subtotal is price * quantity rounded to cents.
func Subtotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

// VerifyTotal fails with INCONSISTENT when the stored total drifted from its items.
func VerifyTotal(order *models.Order) error {
	recomputed := RecomputeTotal(order.Items)
	if order.TotalPrice.Equal(recomputed) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInconsistent, "order total does not match its items").
		WithDetails(map[string]any{
			"order_id":    order.ID,
			"stored":      order.TotalPrice.StringFixed(2),
			"recomputed":  recomputed.StringFixed(2),
			"items_count": len(order.Items),
		})
}

func linesOf(items []models.OrderItem) []inventory.Line {
	lines := make([]inventory.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, inventory.Line{MenuItemID: item.MenuItemID, Quantity: item.Quantity})
	}
	return lines
}
