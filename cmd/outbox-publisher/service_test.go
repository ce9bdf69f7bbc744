package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/smartcanteen/canteen-backend/pkg/config"
	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	"github.com/smartcanteen/canteen-backend/pkg/enums"
	"github.com/smartcanteen/canteen-backend/pkg/kafka"
	"github.com/smartcanteen/canteen-backend/pkg/logger"
	"github.com/smartcanteen/canteen-backend/pkg/outbox"
	"github.com/smartcanteen/canteen-backend/pkg/outbox/payloads"
	"github.com/smartcanteen/canteen-backend/pkg/outbox/registry"
)

// relayFixture bundles the fakes one relay run talks to.
type relayFixture struct {
	rows     *rowStore
	broker   *recordingBroker
	registry *stubResolver
	dlq      *dlqSink
	svc      *Service
}

func newRelayFixture(t *testing.T, maxAttempts int, rows ...models.OutboxEvent) *relayFixture {
	t.Helper()
	f := &relayFixture{
		rows:     &rowStore{pending: rows},
		broker:   &recordingBroker{},
		registry: &stubResolver{topic: "canteen.orders"},
		dlq:      &dlqSink{},
	}
	svc, err := NewService(ServiceParams{
		Config: &config.Config{Outbox: config.OutboxConfig{
			BatchSize:      len(rows) + 1,
			PollIntervalMS: 100,
			MaxAttempts:    maxAttempts,
		}},
		Logger:        logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:            passthroughDB{},
		Broker:        f.broker,
		Repository:    f.rows,
		Registry:      f.registry,
		DLQRepository: f.dlq,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func orderRow(t *testing.T, eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	t.Helper()
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       body,
		AttemptCount:  attempts,
	}
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.EqualError(t, err, "config is required")

	_, err = NewService(ServiceParams{Config: &config.Config{}, Logger: logger.New(logger.Options{Output: io.Discard})})
	require.EqualError(t, err, "database client is required")
}

func TestProcessBatchKeepsGoingPastTransientFailure(t *testing.T) {
	first := orderRow(t, enums.EventOrderPlaced, 0)
	second := orderRow(t, enums.EventOrderPlaced, 0)
	f := newRelayFixture(t, 5, first, second)
	f.broker.failures = []error{errors.New("leader not available")}

	processed, err := f.svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, []uuid.UUID{first.ID}, f.rows.retried)
	assert.Equal(t, []uuid.UUID{second.ID}, f.rows.published)
	assert.Empty(t, f.dlq.reasons)
}

func TestProcessBatchReportsIdleWhenNothingPending(t *testing.T) {
	f := newRelayFixture(t, 5)

	processed, err := f.svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Empty(t, f.broker.sent)
}

func TestRelayedMessageIsKeyedByOrder(t *testing.T) {
	row := orderRow(t, enums.EventOrderStatusChanged, 0)
	f := newRelayFixture(t, 5, row)

	_, err := f.svc.processBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, f.broker.sent, 1)
	msg := f.broker.sent[0]
	assert.Equal(t, "canteen.orders", msg.Topic)
	assert.Equal(t, row.AggregateID.String(), string(msg.Key))
	assert.JSONEq(t, string(row.Payload), string(msg.Value))
	assert.Equal(t, string(enums.EventOrderStatusChanged), msg.Headers["event_type"])
	assert.Equal(t, row.AggregateID.String(), msg.Headers["aggregate_id"])
	assert.Equal(t, []uuid.UUID{row.ID}, f.rows.published)
}

func TestRowsGoToDeadLetter(t *testing.T) {
	cases := map[string]struct {
		attempts int
		setup    func(*relayFixture)
		want     enums.OutboxDLQErrorReason
	}{
		"unknown payload": {
			setup: func(f *relayFixture) {
				f.registry.err = registry.NewNonRetryableError(errors.New("invalid payload"))
			},
			want: enums.OutboxDLQReasonNonRetryable,
		},
		"topic missing": {
			setup: func(f *relayFixture) { f.registry.topic = "" },
			want:  enums.OutboxDLQReasonNonRetryable,
		},
		"attempts exhausted": {
			attempts: 1,
			setup: func(f *relayFixture) {
				f.broker.failures = []error{errors.New("broker down")}
			},
			want: enums.OutboxDLQReasonMaxAttempts,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			row := orderRow(t, enums.EventOrderPlaced, tc.attempts)
			f := newRelayFixture(t, 2, row)
			tc.setup(f)

			processed, err := f.svc.processBatch(context.Background())
			require.NoError(t, err)
			assert.True(t, processed)
			assert.Equal(t, []enums.OutboxDLQErrorReason{tc.want}, f.dlq.reasons)
			assert.Equal(t, []uuid.UUID{row.ID}, f.dlq.ids)
			assert.Equal(t, []uuid.UUID{row.ID}, f.rows.terminal)
			assert.Empty(t, f.broker.sent)
			assert.Empty(t, f.rows.published)
		})
	}
}

func TestProcessBatchSurfacesBookkeepingFailure(t *testing.T) {
	row := orderRow(t, enums.EventOrderPlaced, 0)
	f := newRelayFixture(t, 5, row)
	f.rows.markErr = errors.New("connection reset")

	_, err := f.svc.processBatch(context.Background())
	require.ErrorContains(t, err, "connection reset")
}

func TestRunPingsDependenciesFirst(t *testing.T) {
	f := newRelayFixture(t, 5)
	f.broker.pingErr = errors.New("no brokers")

	err := f.svc.Run(context.Background())
	require.ErrorContains(t, err, "kafka ping failed")
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newRelayFixture(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, f.svc.Run(ctx), context.Canceled)
}

func TestBackoffStaysUnderCap(t *testing.T) {
	f := newRelayFixture(t, 5)
	backoff := f.svc.newBackoff()

	first, stop := backoff.Next()
	require.False(t, stop)
	assert.LessOrEqual(t, first, 100*time.Millisecond+jitterWindow)

	var last time.Duration
	for range 20 {
		last, _ = backoff.Next()
	}
	assert.LessOrEqual(t, last, maxBackoff+jitterWindow)
}

type rowStore struct {
	pending   []models.OutboxEvent
	published []uuid.UUID
	retried   []uuid.UUID
	terminal  []uuid.UUID
	markErr   error
}

func (r *rowStore) FetchUnpublishedForPublish(_ *gorm.DB, _, _ int) ([]models.OutboxEvent, error) {
	return r.pending, nil
}

func (r *rowStore) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if r.markErr != nil {
		return r.markErr
	}
	r.published = append(r.published, id)
	return nil
}

func (r *rowStore) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	r.retried = append(r.retried, id)
	return nil
}

func (r *rowStore) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	r.terminal = append(r.terminal, id)
	return nil
}

type passthroughDB struct{}

func (passthroughDB) Ping(context.Context) error { return nil }

func (passthroughDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type recordingBroker struct {
	pingErr  error
	failures []error
	sent     []kafka.Message
}

func (b *recordingBroker) Ping(context.Context) error { return b.pingErr }

func (b *recordingBroker) Publish(_ context.Context, msg kafka.Message) error {
	if len(b.failures) > 0 {
		err := b.failures[0]
		b.failures = b.failures[1:]
		return err
	}
	b.sent = append(b.sent, msg)
	return nil
}

type stubResolver struct {
	topic string
	err   error
}

func (s *stubResolver) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: s.topic, AggregateType: event.AggregateType},
		Envelope:   outbox.PayloadEnvelope{EventID: event.ID.String(), OccurredAt: event.CreatedAt},
		Payload:    &payloads.OrderPlacedEvent{},
	}, nil
}

type dlqSink struct {
	ids     []uuid.UUID
	reasons []enums.OutboxDLQErrorReason
}

func (d *dlqSink) Record(_ *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, _ error, _ time.Time) error {
	d.ids = append(d.ids, event.ID)
	d.reasons = append(d.reasons, reason)
	return nil
}
