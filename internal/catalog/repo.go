package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/smartcanteen/canteen-backend/pkg/db"
	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	"github.com/smartcanteen/canteen-backend/pkg/enums"
)

// MenuFilter narrows ListMenuItems.
type MenuFilter struct {
	Available *bool
	TagIDs    []uuid.UUID
}

// Repository reads menu items and tags.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// FindMenuItem loads one item with its tags. tx may be nil.
func (r *Repository) FindMenuItem(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.MenuItem, error) {
	var item models.MenuItem
	err := r.conn(ctx, tx).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tag_type ASC, name ASC") }).
		First(&item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) ListMenuItems(ctx context.Context, filter MenuFilter) ([]models.MenuItem, error) {
	q := r.db.WithContext(ctx).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tag_type ASC, name ASC") })
	if filter.Available != nil {
		q = q.Where("availability = ?", *filter.Available)
	}
	if len(filter.TagIDs) > 0 {
		q = q.Where("id IN (?)", r.db.Table("menu_item_tags").Select("menu_item_id").Where("tag_id IN ?", filter.TagIDs))
	}
	var items []models.MenuItem
	err := q.Order("name ASC").Order("id ASC").Find(&items).Error
	return items, err
}

func (r *Repository) ListTags(ctx context.Context, tagType *enums.TagType) ([]models.Tag, error) {
	q := r.db.WithContext(ctx)
	if tagType != nil {
		q = q.Where("tag_type = ?", *tagType)
	}
	var tags []models.Tag
	err := q.Order("tag_type ASC").Order("name ASC").Find(&tags).Error
	return tags, err
}

func (r *Repository) FindTag(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).First(&tag, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// UpdateTagDescription touches only the description column; name and tag_type stay fixed.
func (r *Repository) UpdateTagDescription(ctx context.Context, id uuid.UUID, description string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Tag{}).
		Where("id = ?", id).
		UpdateColumn("description", description)
	return res.RowsAffected, res.Error
}

// EnsureTag inserts the tag when (name, tag_type) is absent and reports whether it did.
func (r *Repository) EnsureTag(ctx context.Context, tag models.Tag) (bool, error) {
	var existing []models.Tag
	res := r.db.WithContext(ctx).
		Where("name = ? AND tag_type = ?", tag.Name, tag.TagType).
		Limit(1).
		Find(&existing)
	if res.Error != nil {
		return false, res.Error
	}
	if len(existing) > 0 {
		return false, nil
	}
	if err := r.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
