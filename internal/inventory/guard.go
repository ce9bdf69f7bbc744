package inventory

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/smartcanteen/canteen-backend/pkg/db"
	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	pkgerrors "github.com/smartcanteen/canteen-backend/pkg/errors"
	"github.com/smartcanteen/canteen-backend/pkg/metrics"
)

// Line is one requested (menu item, quantity) reservation.
type Line struct {
	MenuItemID uuid.UUID
	Quantity   int
}

// Guard is the only writer of inventory.stock_level. Every method runs on the
// caller's transaction so stock changes commit or roll back with the order.
type Guard struct {
	metrics *metrics.OrderMetrics
	now     func() time.Time
}

func NewGuard(m *metrics.OrderMetrics) *Guard {
	return &Guard{metrics: m, now: time.Now}
}

// Reserve locks the item's inventory row and decrements stock_level by qty.
// Nothing changes when stock_level < qty.
func (g *Guard) Reserve(ctx context.Context, tx *gorm.DB, menuItemID uuid.UUID, qty int) error {
	if err := validateQty(menuItemID, qty); err != nil {
		return err
	}

	inv, err := g.lock(ctx, tx, menuItemID)
	if err != nil {
		return err
	}
	if inv.StockLevel < qty {
		return insufficient(menuItemID, qty, inv.StockLevel)
	}

	res := tx.WithContext(ctx).
		Model(&models.Inventory{}).
		Where("menu_item_id = ? AND stock_level >= ?", menuItemID, qty).
		UpdateColumns(map[string]any{
			"stock_level": gorm.Expr("stock_level - ?", qty),
			"updated_at":  g.now().UTC(),
		})
	if res.Error != nil {
		return classify(res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		return insufficient(menuItemID, qty, inv.StockLevel)
	}
	return nil
}

// Release adds qty back to stock_level. It does not know which reservation the
// units belong to; calling it twice restocks twice.
func (g *Guard) Release(ctx context.Context, tx *gorm.DB, menuItemID uuid.UUID, qty int) error {
	if err := validateQty(menuItemID, qty); err != nil {
		return err
	}
	res := tx.WithContext(ctx).
		Model(&models.Inventory{}).
		Where("menu_item_id = ?", menuItemID).
		UpdateColumns(map[string]any{
			"stock_level": gorm.Expr("stock_level + ?", qty),
			"updated_at":  g.now().UTC(),
		})
	if res.Error != nil {
		return classify(res.Error, "release stock")
	}
	if res.RowsAffected == 0 {
		return notFound(menuItemID)
	}
	return nil
}

// Lookup returns the item's inventory row without locking it.
func (g *Guard) Lookup(ctx context.Context, tx *gorm.DB, menuItemID uuid.UUID) (*models.Inventory, error) {
	return load(ctx, tx, menuItemID)
}

// BelowThreshold reports stock_level < threshold for the item.
func (g *Guard) BelowThreshold(ctx context.Context, tx *gorm.DB, menuItemID uuid.UUID) (bool, error) {
	inv, err := g.Lookup(ctx, tx, menuItemID)
	if err != nil {
		return false, err
	}
	return inv.StockLevel < inv.Threshold, nil
}

// ReserveAll reserves every line, locking rows in ascending menu item id order.
// When a line fails the lines already reserved are released before returning.
func (g *Guard) ReserveAll(ctx context.Context, tx *gorm.DB, lines []Line) (err error) {
	defer func() { g.metrics.IncReservation(resultFor(err)) }()

	ordered := SortLines(lines)
	reserved := make([]Line, 0, len(ordered))
	for _, line := range ordered {
		if rerr := g.Reserve(ctx, tx, line.MenuItemID, line.Quantity); rerr != nil {
			return g.compensate(ctx, tx, reserved, rerr)
		}
		reserved = append(reserved, line)
	}
	return nil
}

// ReleaseAll restocks every line. All lines are attempted; failures are combined.
func (g *Guard) ReleaseAll(ctx context.Context, tx *gorm.DB, lines []Line) error {
	var errs error
	for _, line := range SortLines(lines) {
		errs = multierr.Append(errs, g.Release(ctx, tx, line.MenuItemID, line.Quantity))
	}
	return errs
}

func (g *Guard) compensate(ctx context.Context, tx *gorm.DB, reserved []Line, cause error) error {
	// A busy or cancelled transaction cannot run more statements; rollback restores stock.
	if pkgerrors.IsCode(cause, pkgerrors.CodeBusy) || ctx.Err() != nil {
		return cause
	}
	errs := cause
	for i := len(reserved) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, g.Release(ctx, tx, reserved[i].MenuItemID, reserved[i].Quantity))
	}
	return errs
}

func (g *Guard) lock(ctx context.Context, tx *gorm.DB, menuItemID uuid.UUID) (*models.Inventory, error) {
	var inv models.Inventory
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("menu_item_id = ?", menuItemID).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(menuItemID)
		}
		return nil, classify(err, "lock inventory")
	}
	return &inv, nil
}

func load(ctx context.Context, tx *gorm.DB, menuItemID uuid.UUID) (*models.Inventory, error) {
	var inv models.Inventory
	err := tx.WithContext(ctx).Where("menu_item_id = ?", menuItemID).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(menuItemID)
		}
		return nil, classify(err, "load inventory")
	}
	return &inv, nil
}

// SortLines returns a copy ordered by menu item id. Equal ids keep their order.
func SortLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	sort.SliceStable(out, func(i, j int) bool {
		return bytes.Compare(out[i].MenuItemID[:], out[j].MenuItemID[:]) < 0
	})
	return out
}

func validateQty(menuItemID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"menu_item_id": menuItemID, "quantity": qty})
	}
	return nil
}

func insufficient(menuItemID uuid.UUID, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for menu item").
		WithDetails(map[string]any{
			"menu_item_id": menuItemID,
			"requested":    requested,
			"available":    available,
		})
}

func notFound(menuItemID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "inventory not found for menu item").
		WithDetails(map[string]any{"menu_item_id": menuItemID})
}

func classify(err error, op string) error {
	if dbpkg.IsLockContention(err) {
		return pkgerrors.Wrap(pkgerrors.CodeBusy, err, op)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

func resultFor(err error) string {
	if err == nil {
		return metrics.ResultSuccess
	}
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return metrics.ResultFailure
}
