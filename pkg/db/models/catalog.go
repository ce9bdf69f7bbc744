package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartcanteen/canteen-backend/pkg/enums"
)

// Tag labels menu items. (name, tag_type) is unique.
type Tag struct {
	ID          uuid.UUID     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string        `gorm:"column:name;not null;uniqueIndex:ux_tags_name_type" json:"name"`
	TagType     enums.TagType `gorm:"column:tag_type;type:text;not null;uniqueIndex:ux_tags_name_type" json:"tag_type"`
	Description string        `gorm:"column:description;not null;default:''" json:"description"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (t *Tag) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// MenuItem is a sellable dish. Price changes never touch existing order items.
type MenuItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name         string          `gorm:"column:name;not null" json:"name"`
	Description  string          `gorm:"column:description;not null;default:''" json:"description"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null" json:"price"`
	Availability bool            `gorm:"column:availability;not null;default:true" json:"availability"`
	ImageURL     *string         `gorm:"column:image_url" json:"image_url,omitempty"`
	Tags         []Tag           `gorm:"many2many:menu_item_tags;constraint:OnDelete:CASCADE" json:"tags"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (m *MenuItem) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// Inventory holds the stock counters of exactly one menu item.
type Inventory struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	MenuItemID uuid.UUID `gorm:"column:menu_item_id;type:uuid;not null;uniqueIndex" json:"menu_item_id"`
	MenuItem   *MenuItem `gorm:"foreignKey:MenuItemID;constraint:OnDelete:CASCADE" json:"-"`
	Quantity   int       `gorm:"column:quantity;not null;default:0" json:"quantity"`
	StockLevel int       `gorm:"column:stock_level;not null;default:0;check:chk_inventory_stock_level,stock_level >= 0" json:"stock_level"`
	Threshold  int       `gorm:"column:threshold;not null;default:0;check:chk_inventory_threshold,threshold >= 0" json:"threshold"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Inventory) TableName() string {
	return "inventory"
}

func (i *Inventory) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
