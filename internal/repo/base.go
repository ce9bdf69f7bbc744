package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the connection shared by gorm-backed repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx rebinds the base to tx. A nil tx keeps the current connection.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// Conn prefers tx over the bound connection and attaches ctx.
func (b Base) Conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	return b.WithTx(tx).DB(ctx)
}
