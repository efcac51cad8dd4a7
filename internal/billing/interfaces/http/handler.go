package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/shopspring/decimal"

	"prepaid-meter-cloud/internal/billing/application"
	billing "prepaid-meter-cloud/internal/billing/domain"
)

// BillingHandler serves balance and payment endpoints.
type BillingHandler struct {
	ledger   *application.Ledger
	payments *application.PaymentService
	logger   *log.Logger
}

// NewBillingHandler constructs a billing handler.
func NewBillingHandler(ledger *application.Ledger, payments *application.PaymentService, logger *log.Logger) (*BillingHandler, error) {
	if ledger == nil {
		return nil, errors.New("billing handler: nil ledger")
	}
	if payments == nil {
		return nil, errors.New("billing handler: nil payment service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &BillingHandler{ledger: ledger, payments: payments, logger: logger}, nil
}

// Balance serves GET ?user_id=.
func (h *BillingHandler) Balance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	balance, err := h.ledger.Balance(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

type creditRequest struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

// Credit serves POST {"user_id", "amount"} and returns the new balance.
func (h *BillingHandler) Credit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	balance, err := h.ledger.Credit(r.Context(), req.UserID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

type createPaymentRequest struct {
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Description string          `json:"description"`
}

// CreatePayment serves POST and opens a pending payment.
func (h *BillingHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	payment, err := h.payments.CreatePayment(r.Context(), req.UserID, req.Amount, req.Method, req.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentPayload(payment))
}

type confirmPaymentRequest struct {
	PaymentID     string `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

// ConfirmPayment serves POST and settles the payment as successful.
func (h *BillingHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	payment, err := h.payments.ConfirmPayment(r.Context(), req.PaymentID, req.TransactionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentPayload(payment))
}

// FailPayment serves POST and settles the payment as failed.
func (h *BillingHandler) FailPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	payment, err := h.payments.FailPayment(r.Context(), req.PaymentID, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentPayload(payment))
}

// ListPayments serves GET ?user_id=.
func (h *BillingHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	payments, err := h.payments.Payments(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(payments))
	for _, payment := range payments {
		payload = append(payload, paymentPayload(payment))
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payload})
}

func (h *BillingHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrPaymentNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, billing.ErrInvalidAmount),
		errors.Is(err, billing.ErrEmptyUserID),
		errors.Is(err, billing.ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, billing.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Printf("billing: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func paymentPayload(payment *billing.Payment) map[string]any {
	payload := map[string]any{
		"id":          payment.ID,
		"user_id":     payment.UserID,
		"reference":   payment.Reference,
		"amount":      payment.Amount,
		"method":      payment.Method,
		"status":      payment.Status,
		"description": payment.Description,
		"created_at":  payment.CreatedAt,
	}
	if payment.TransactionID != "" {
		payload["transaction_id"] = payment.TransactionID
	}
	if payment.CompletedAt != nil {
		payload["completed_at"] = payment.CompletedAt
	}
	return payload
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
