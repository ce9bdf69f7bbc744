package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartcanteen/canteen-backend/api/responses"
	"github.com/smartcanteen/canteen-backend/api/validators"
	"github.com/smartcanteen/canteen-backend/internal/payments"
	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	"github.com/smartcanteen/canteen-backend/pkg/enums"
	pkgerrors "github.com/smartcanteen/canteen-backend/pkg/errors"
	"github.com/smartcanteen/canteen-backend/pkg/logger"
)

// PaymentRecorder stores processor-reported payment attempts.
type PaymentRecorder interface {
	Record(ctx context.Context, input payments.RecordInput) (*models.Payment, error)
}

type recordPaymentRequest struct {
	OrderID    uuid.UUID       `json:"order_id"`
	PaymentRef string          `json:"payment_ref" validate:"max=100"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"payment_method"`
	Status     string          `json:"payment_status"`
	ReceiptURL *string         `json:"receipt_url" validate:"omitempty,url"`
}

// RecordPayment stores a payment attempt reported by the processor. Amount,
// method and status are checked by the payments service.
func RecordPayment(svc PaymentRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		var body recordPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.Record(r.Context(), payments.RecordInput{
			OrderID:    body.OrderID,
			PaymentRef: body.PaymentRef,
			Amount:     body.Amount,
			Method:     enums.PaymentMethod(body.Method),
			Status:     enums.PaymentStatus(body.Status),
			ReceiptURL: body.ReceiptURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}
