package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	pkgerrors "github.com/smartcanteen/canteen-backend/pkg/errors"
	"github.com/smartcanteen/canteen-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Stock is the staff view of one inventory row.
type Stock struct {
	MenuItemID     uuid.UUID `json:"menu_item_id"`
	Quantity       int       `json:"quantity"`
	StockLevel     int       `json:"stock_level"`
	Threshold      int       `json:"threshold"`
	BelowThreshold bool      `json:"below_threshold"`
}

func stockFrom(inv *models.Inventory) Stock {
	return Stock{
		MenuItemID:     inv.MenuItemID,
		Quantity:       inv.Quantity,
		StockLevel:     inv.StockLevel,
		Threshold:      inv.Threshold,
		BelowThreshold: inv.StockLevel < inv.Threshold,
	}
}

// Service exposes stock reads and restocking to staff.
type Service struct {
	db    *gorm.DB
	tx    txRunner
	guard *Guard
	logg  *logger.Logger
}

func NewService(db *gorm.DB, tx txRunner, guard *Guard, logg *logger.Logger) (*Service, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	if guard == nil {
		return nil, errors.New("inventory guard is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{db: db, tx: tx, guard: guard, logg: logg}, nil
}

func (s *Service) Get(ctx context.Context, menuItemID uuid.UUID) (*Stock, error) {
	inv, err := load(ctx, s.db, menuItemID)
	if err != nil {
		return nil, err
	}
	stock := stockFrom(inv)
	return &stock, nil
}

// Restock returns qty units to the item's stock.
func (s *Service) Restock(ctx context.Context, menuItemID uuid.UUID, qty int) (*Stock, error) {
	var stock Stock
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.guard.Release(ctx, tx, menuItemID, qty); err != nil {
			return err
		}
		inv, err := load(ctx, tx, menuItemID)
		if err != nil {
			return err
		}
		stock = stockFrom(inv)
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restock")
		}
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"menu_item_id": menuItemID.String(),
		"quantity":     qty,
		"stock_level":  stock.StockLevel,
	})
	s.logg.Info(ctx, "inventory.restocked")
	return &stock, nil
}
