package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	"github.com/smartcanteen/canteen-backend/pkg/enums"
	pkgerrors "github.com/smartcanteen/canteen-backend/pkg/errors"
	"github.com/smartcanteen/canteen-backend/pkg/logger"
	"github.com/smartcanteen/canteen-backend/pkg/redis"
)

const (
	menuCacheTTL         = time.Minute
	maxDescriptionLength = 500
)

type catalogRepository interface {
	FindMenuItem(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.MenuItem, error)
	ListMenuItems(ctx context.Context, filter MenuFilter) ([]models.MenuItem, error)
	ListTags(ctx context.Context, tagType *enums.TagType) ([]models.Tag, error)
	FindTag(ctx context.Context, id uuid.UUID) (*models.Tag, error)
	UpdateTagDescription(ctx context.Context, id uuid.UUID, description string) (int64, error)
	EnsureTag(ctx context.Context, tag models.Tag) (bool, error)
}

// Service is the Catalog Store: menu items, their tags and prices.
type Service struct {
	repo  catalogRepository
	cache redis.CacheStore
	logg  *logger.Logger
}

// NewService builds the catalog. cache may be nil to disable menu caching.
func NewService(repo catalogRepository, cache redis.CacheStore, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("catalog repository is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{repo: repo, cache: cache, logg: logg}, nil
}

// GetMenuItem returns the item or NOT_FOUND.
func (s *Service) GetMenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	return s.GetMenuItemTx(ctx, nil, id)
}

// GetMenuItemTx is GetMenuItem bound to an open transaction.
func (s *Service) GetMenuItemTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.MenuItem, error) {
	item, err := s.repo.FindMenuItem(ctx, tx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found").
				WithDetails(map[string]any{"menu_item_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load menu item")
	}
	return item, nil
}

func (s *Service) PriceOf(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	item, err := s.GetMenuItem(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return item.Price, nil
}

func (s *Service) IsAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	item, err := s.GetMenuItem(ctx, id)
	if err != nil {
		return false, err
	}
	return item.Availability, nil
}

// ListMenuItems serves from the cache when one is configured.
func (s *Service) ListMenuItems(ctx context.Context, filter MenuFilter) ([]models.MenuItem, error) {
	key := s.menuCacheKey(filter)
	if cached, ok := s.readMenuCache(ctx, key); ok {
		return cached, nil
	}

	items, err := s.repo.ListMenuItems(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list menu items")
	}
	if items == nil {
		items = []models.MenuItem{}
	}
	s.writeMenuCache(ctx, key, items)
	return items, nil
}

func (s *Service) ListTags(ctx context.Context, tagType *enums.TagType) ([]models.Tag, error) {
	if tagType != nil && !tagType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown tag_type %q", *tagType))
	}
	tags, err := s.repo.ListTags(ctx, tagType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tags")
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}

// UpdateTagDescription edits the only mutable tag field.
func (s *Service) UpdateTagDescription(ctx context.Context, id uuid.UUID, description string) (*models.Tag, error) {
	description = strings.TrimSpace(description)
	if len(description) > maxDescriptionLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is too long").
			WithDetails(map[string]any{"max_length": maxDescriptionLength})
	}
	affected, err := s.repo.UpdateTagDescription(ctx, id, description)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update tag")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tag not found")
	}
	s.invalidateMenuCache(ctx)

	tag, err := s.repo.FindTag(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload tag")
	}
	return tag, nil
}

// SeedDefaultTags installs DefaultTags, skipping pairs that already exist.
func (s *Service) SeedDefaultTags(ctx context.Context) (int, error) {
	created := 0
	for _, def := range DefaultTags {
		inserted, err := s.repo.EnsureTag(ctx, models.Tag{
			Name:        def.Name,
			TagType:     def.Type,
			Description: def.Description,
		})
		if err != nil {
			return created, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("seed tag %s/%s", def.Type, def.Name))
		}
		if inserted {
			created++
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"created": created, "total": len(DefaultTags)}), "catalog.tags_seeded")
	return created, nil
}

var menuCacheVariants = []string{"all", "available", "unavailable"}

func (s *Service) menuCacheKey(filter MenuFilter) string {
	if s.cache == nil || len(filter.TagIDs) > 0 {
		return ""
	}
	variant := menuCacheVariants[0]
	if filter.Available != nil {
		if *filter.Available {
			variant = menuCacheVariants[1]
		} else {
			variant = menuCacheVariants[2]
		}
	}
	return s.cache.CacheKey("menu", variant)
}

func (s *Service) readMenuCache(ctx context.Context, key string) ([]models.MenuItem, bool) {
	if key == "" {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.ErrNil) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "catalog.menu_cache_read_failed")
		}
		return nil, false
	}
	var items []models.MenuItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, false
	}
	return items, true
}

func (s *Service) writeMenuCache(ctx context.Context, key string, items []models.MenuItem) {
	if key == "" {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(data), menuCacheTTL); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "catalog.menu_cache_write_failed")
	}
}

func (s *Service) invalidateMenuCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(menuCacheVariants))
	for _, v := range menuCacheVariants {
		keys = append(keys, s.cache.CacheKey("menu", v))
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "catalog.menu_cache_invalidate_failed")
	}
}
