package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartcanteen/canteen-backend/internal/payments"
	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	"github.com/smartcanteen/canteen-backend/pkg/enums"
	pkgerrors "github.com/smartcanteen/canteen-backend/pkg/errors"
)

type stubRecorder struct {
	input payments.RecordInput
	err   error
}

func (s *stubRecorder) Record(ctx context.Context, input payments.RecordInput) (*models.Payment, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &models.Payment{ID: uuid.New(), OrderID: input.OrderID, Amount: input.Amount, Method: input.Method, Status: input.Status}, nil
}

func TestRecordPaymentCreated(t *testing.T) {
	orderID := uuid.New()
	svc := &stubRecorder{}
	body := `{"order_id":"` + orderID.String() + `","payment_ref":"ref-1","amount":"12.50","payment_method":"card","payment_status":"completed"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	resp := httptest.NewRecorder()
	RecordPayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.input.OrderID != orderID || svc.input.PaymentRef != "ref-1" {
		t.Fatalf("unexpected input %+v", svc.input)
	}
	if !svc.input.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected amount %s", svc.input.Amount)
	}
	if svc.input.Method != enums.PaymentMethod("card") || svc.input.Status != enums.PaymentStatus("completed") {
		t.Fatalf("unexpected method/status %s/%s", svc.input.Method, svc.input.Status)
	}
}

func TestRecordPaymentSurfacesServiceValidation(t *testing.T) {
	svc := &stubRecorder{err: pkgerrors.New(pkgerrors.CodeValidation, "invalid payment").WithDetails(map[string]string{"amount": "must be positive"})}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(`{"amount":"-1"}`))
	resp := httptest.NewRecorder()
	RecordPayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp.Body.Bytes()); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", code)
	}
}
