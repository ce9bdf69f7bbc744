package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartcanteen/canteen-backend/internal/repo"
	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	"github.com/smartcanteen/canteen-backend/pkg/pagination"
)

// Repository persists notification rows. Every read and write except the
// retention purge is scoped to one recipient.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type listNotificationsParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type gormRepository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{Base: repo.NewBase(db)}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{Base: r.Base.WithTx(tx)}
}

// inbox selects the notifications addressed to userID.
func (r *gormRepository) inbox(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.DB(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

func (r *gormRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.DB(ctx).Create(notification).Error
}

// List returns up to params.Limit rows newest first; the service asks for one
// extra row to detect a further page.
func (r *gormRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error) {
	query := r.inbox(ctx, params.UserID)
	if params.UnreadOnly {
		query = query.Where("read_status = ?", false)
	}

	var rows []models.Notification
	if err := query.Scopes(pagination.Scope(params.Cursor)).Limit(params.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkRead reports whether the notification exists for userID. Marking an
// already read row succeeds without touching read_at.
func (r *gormRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error) {
	updated, err := r.markRead(r.inbox(ctx, userID).Where("id = ?", notificationID), now)
	if err != nil || updated > 0 {
		return updated > 0, err
	}

	var count int64
	err = r.inbox(ctx, userID).Where("id = ?", notificationID).Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	return r.markRead(r.inbox(ctx, userID), now)
}

func (r *gormRepository) markRead(scope *gorm.DB, now time.Time) (int64, error) {
	res := scope.Where("read_status = ?", false).UpdateColumns(map[string]any{
		"read_status": true,
		"read_at":     now,
	})
	return res.RowsAffected, res.Error
}

// DeleteOlderThan purges notifications created before cutoff, read or not.
func (r *gormRepository) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	res := r.Conn(ctx, tx).Where("created_at < ?", cutoff).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
