package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	"github.com/smartcanteen/canteen-backend/pkg/enums"
	pkgerrors "github.com/smartcanteen/canteen-backend/pkg/errors"
	"github.com/smartcanteen/canteen-backend/pkg/logger"
	"github.com/smartcanteen/canteen-backend/pkg/outbox"
	"github.com/smartcanteen/canteen-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RecordInput is a payment attempt as reported by the processor.
type RecordInput struct {
	OrderID    uuid.UUID
	PaymentRef string
	Amount     decimal.Decimal
	Method     enums.PaymentMethod
	Status     enums.PaymentStatus
	ReceiptURL *string
}

// Service records payments and answers latest-payment lookups. It never
// talks to a gateway.
type Service struct {
	repo    *Repository
	tx      txRunner
	emitter outbox.Emitter
	logg    *logger.Logger
}

func NewService(repo *Repository, tx txRunner, emitter outbox.Emitter, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("payments repository is required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{repo: repo, tx: tx, emitter: emitter, logg: logg}, nil
}

func (s *Service) Record(ctx context.Context, input RecordInput) (*models.Payment, error) {
	if err := validateRecord(&input); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		OrderID:    input.OrderID,
		PaymentRef: input.PaymentRef,
		Amount:     input.Amount,
		Method:     input.Method,
		Status:     input.Status,
		ReceiptURL: input.ReceiptURL,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		exists, err := s.repo.OrderExistsTx(ctx, tx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check order")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err := s.repo.CreateTx(ctx, tx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRecorded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data: payloads.PaymentRecordedEvent{
				PaymentID:  payment.ID,
				OrderID:    payment.OrderID,
				PaymentRef: payment.PaymentRef,
				Amount:     payment.Amount,
				Method:     payment.Method,
				Status:     payment.Status,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment")
		}
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, payment.OrderID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"payment_id":     payment.ID.String(),
		"payment_status": string(payment.Status),
	})
	s.logg.Info(ctx, "payment.recorded")
	return payment, nil
}

// Latest returns the newest payment for the order, or NOT_FOUND.
func (s *Service) Latest(ctx context.Context, orderID uuid.UUID, status *enums.PaymentStatus) (*models.Payment, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status")
	}
	payment, err := s.repo.Latest(ctx, orderID, status)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment recorded for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load latest payment")
	}
	return payment, nil
}

func validateRecord(input *RecordInput) error {
	input.PaymentRef = strings.TrimSpace(input.PaymentRef)
	fields := map[string]string{}
	if input.OrderID == uuid.Nil {
		fields["order_id"] = "required"
	}
	if input.PaymentRef == "" {
		fields["payment_ref"] = "required"
	}
	switch {
	case input.Amount.IsNegative():
		fields["amount"] = "must not be negative"
	case !input.Amount.Equal(input.Amount.Round(2)):
		fields["amount"] = "must have at most two decimal places"
	}
	if !input.Method.IsValid() {
		fields["payment_method"] = "must be one of mobile-money, card, cash"
	}
	if !input.Status.IsValid() {
		fields["payment_status"] = "must be one of pending, completed, failed"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment").WithDetails(fields)
	}
	return nil
}
