package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/smartcanteen/canteen-backend/pkg/logger"
)

const (
	notificationRetentionDays = 30
	outboxRetentionDays       = 14
	outboxMinAttempts         = 10
)

// purgeFunc deletes rows older than cutoff inside tx and reports how many went.
type purgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// retentionJob trims a table to a rolling window of days.
type retentionJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	retention int
	purge     purgeFunc
	fields    map[string]any
	now       func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purge(ctx, tx, cutoff)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	fields := map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	}
	for k, v := range j.fields {
		fields[k] = v
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "retention cleanup complete")
	return nil
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationsCleanupRepo
	Retention  int
}

type notificationsCleanupRepo interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewNotificationCleanupJob drops notifications older than the retention window.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if err := requireBase(params.Logger, params.DB); err != nil {
		return nil, err
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &retentionJob{
		name:      "notification-cleanup",
		logg:      params.Logger,
		db:        params.DB,
		retention: orDefault(params.Retention, notificationRetentionDays),
		purge:     params.Repository.DeleteOlderThan,
		now:       time.Now,
	}, nil
}

type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxRetentionRepo
	Retention   int
	MinAttempts int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

// NewOutboxRetentionJob drops published outbox rows and rows parked as
// terminal once they fall out of the retention window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if err := requireBase(params.Logger, params.DB); err != nil {
		return nil, err
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	minAttempts := orDefault(params.MinAttempts, outboxMinAttempts)
	repo := params.Repository
	return &retentionJob{
		name:      "outbox-retention",
		logg:      params.Logger,
		db:        params.DB,
		retention: orDefault(params.Retention, outboxRetentionDays),
		purge: func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return repo.DeletePublishedBefore(ctx, tx, cutoff, minAttempts)
		},
		fields: map[string]any{"min_attempts": minAttempts},
		now:    time.Now,
	}, nil
}

func requireBase(logg *logger.Logger, db txRunner) error {
	if logg == nil {
		return fmt.Errorf("logger required")
	}
	if db == nil {
		return fmt.Errorf("db runner required")
	}
	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
