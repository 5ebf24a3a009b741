package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eguva/eguva-backend/internal/middleware"
	"github.com/eguva/eguva-backend/internal/model"
	"github.com/eguva/eguva-backend/internal/repository"
	"github.com/eguva/eguva-backend/internal/service"
)

const (
	maxWebhookBody        = 64 * 1024
	webhookProcessTimeout = 30 * time.Second
)

type createPreferenceRequest struct {
	OrderID int64 `json:"order_id"`
}

type createPreferenceResponse struct {
	PreferenceID string `json:"preference_id"`
	InitPoint    string `json:"init_point"`
}

// CreatePreference создаёт платёжную преференцию для заказа текущего пользователя.
func (h *Handler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createPreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID < 1 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.GetOrder(r.Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get order error", zap.Error(err), zap.Int64("orderID", req.OrderID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if order.UserID != user.ID && user.Role != model.UserRoleAdmin {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	pref, err := h.service.CreatePaymentPreference(r.Context(), req.OrderID)
	if err != nil {
		var pf *service.ProviderFailure
		switch {
		case errors.Is(err, service.ErrPaymentsDisabled):
			writeError(w, http.StatusServiceUnavailable, "Pagos no disponibles por el momento")
		case errors.As(err, &pf):
			h.logger.Error("create preference provider error", zap.Error(err), zap.Int64("orderID", req.OrderID))
			writeError(w, http.StatusBadGateway, pf.Friendly)
		default:
			h.logger.Error("create preference error", zap.Error(err), zap.Int64("orderID", req.OrderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, createPreferenceResponse{
		PreferenceID: pref.PreferenceID,
		InitPoint:    pref.RedirectURL,
	})
}

type processPaymentRequest struct {
	OrderID           int64   `json:"order_id"`
	Token             string  `json:"token"`
	PaymentMethodID   string  `json:"payment_method_id"`
	IssuerID          string  `json:"issuer_id"`
	Installments      int     `json:"installments"`
	TransactionAmount float64 `json:"transaction_amount"`
	Payer             struct {
		Email          string `json:"email"`
		Identification struct {
			Type   string `json:"type"`
			Number string `json:"number"`
		} `json:"identification"`
	} `json:"payer"`
}

type processPaymentResponse struct {
	Status    string `json:"status"`
	PaymentID int64  `json:"payment_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ProcessPayment проводит прямой платёж по заказу (Checkout API).
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req processPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID < 1 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.GetOrder(r.Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get order error", zap.Error(err), zap.Int64("orderID", req.OrderID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if order.UserID != user.ID && user.Role != model.UserRoleAdmin {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	instrument := service.PaymentInstrument{
		Token:                req.Token,
		PaymentMethodID:      req.PaymentMethodID,
		IssuerID:             req.IssuerID,
		Installments:         req.Installments,
		TransactionAmount:    decimal.NewFromFloat(req.TransactionAmount),
		PayerEmail:           req.Payer.Email,
		IdentificationType:   req.Payer.Identification.Type,
		IdentificationNumber: req.Payer.Identification.Number,
	}

	result, err := h.service.ProcessPayment(r.Context(), req.OrderID, instrument)
	if err != nil {
		var pf *service.ProviderFailure
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "El monto del pago no coincide con el total del pedido")
		case errors.Is(err, service.ErrPaymentsDisabled):
			writeError(w, http.StatusServiceUnavailable, "Pagos no disponibles por el momento")
		case errors.As(err, &pf):
			h.logger.Error("process payment provider error", zap.Error(err), zap.Int64("orderID", req.OrderID))
			writeError(w, http.StatusBadGateway, pf.Friendly)
		default:
			h.logger.Error("process payment error", zap.Error(err), zap.Int64("orderID", req.OrderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, processPaymentResponse{
		Status:    result.Status,
		PaymentID: result.PaymentID,
		Message:   result.Message,
	})
}

// flexibleID принимает идентификатор и как JSON-строку, и как число.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	*f = flexibleID(bytes.TrimSpace(data))
	return nil
}

type webhookPayload struct {
	Type string `json:"type"`
	Data struct {
		ID flexibleID `json:"id"`
	} `json:"data"`
}

// Webhook принимает уведомления платёжного провайдера. Ответ 200 отдаётся
// всегда и сразу, сверка с провайдером выполняется в фоне: уведомление --
// лишь сигнал проверить платёж, а не источник истины.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		body = nil
	}

	// Повреждённое тело не мешает ответить: данные могут прийти и в query.
	var payload webhookPayload
	_ = json.Unmarshal(body, &payload)

	query := r.URL.Query()
	dataID := query.Get("data.id")
	if dataID == "" {
		dataID = string(payload.Data.ID)
	}
	if dataID == "" {
		dataID = query.Get("id")
	}

	eventType := payload.Type
	if eventType == "" {
		eventType = query.Get("type")
	}
	if eventType == "" {
		eventType = query.Get("topic")
	}

	w.WriteHeader(http.StatusOK)

	if !h.verifier.Verify(r.Header.Get("x-signature"), r.Header.Get("x-request-id"), dataID) {
		h.logger.Warn("webhook signature mismatch, notification dropped",
			zap.String("dataID", dataID),
			zap.String("type", eventType))
		return
	}

	event := service.WebhookEvent{Type: eventType, DataID: dataID}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), webhookProcessTimeout)
		defer cancel()
		h.service.HandleWebhookEvent(ctx, event)
	}()
}
