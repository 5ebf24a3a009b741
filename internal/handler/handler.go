// Package handler содержит HTTP-обработчики API магазина Eguva.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eguva/eguva-backend/internal/middleware"
	"github.com/eguva/eguva-backend/internal/model"
	"github.com/eguva/eguva-backend/internal/repository"
	"github.com/eguva/eguva-backend/internal/service"
	"github.com/eguva/eguva-backend/internal/signature"
	"github.com/eguva/eguva-backend/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, name, email, password string) (int64, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)

	PlaceOrder(ctx context.Context, userID int64, req service.PlaceOrderRequest) (*model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrders(ctx context.Context, limit, offset int) ([]model.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error

	CreatePaymentPreference(ctx context.Context, orderID int64) (*service.PaymentPreference, error)
	ProcessPayment(ctx context.Context, orderID int64, instrument service.PaymentInstrument) (*service.PaymentResult, error)
	HandleWebhookEvent(ctx context.Context, event service.WebhookEvent)

	GetConfigs(ctx context.Context) ([]model.ConfigEntry, error)
	UpdateConfig(ctx context.Context, key, value string) error

	SubscribeNewsletter(ctx context.Context, email string) (int64, error)
}

// Handler реализует HTTP-обработчики API магазина Eguva.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	verifier       *signature.Verifier
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, verifier *signature.Verifier) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		verifier:       verifier,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidEmail(req.Email) || req.Password == "" || req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := h.authMiddleware.SetAuthCookie(w, userID, model.UserRoleCustomer); err != nil {
		h.logger.Error("set auth cookie error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := h.authMiddleware.SetAuthCookie(w, user.ID, user.Role); err != nil {
		h.logger.Error("set auth cookie error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type orderItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items"`
	FullName        string             `json:"full_name"`
	ShippingAddress string             `json:"shipping_address"`
	Department      string             `json:"department"`
	Province        string             `json:"province"`
	District        string             `json:"district"`
	PostalCode      string             `json:"postal_code"`
	DNI             string             `json:"dni"`
	Phone           string             `json:"phone"`
	PaymentMethod   string             `json:"payment_method"`
	Notes           string             `json:"notes"`
}

type orderLineResponse struct {
	ProductID int64  `json:"product_id"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type orderResponse struct {
	ID           int64               `json:"id"`
	Status       string              `json:"status"`
	Subtotal     string              `json:"subtotal"`
	ShippingCost string              `json:"shipping_cost"`
	Total        string              `json:"total"`
	PaymentID    string              `json:"payment_id,omitempty"`
	PreferenceID string              `json:"preference_id,omitempty"`
	CreatedAt    string              `json:"created_at"`
	Lines        []orderLineResponse `json:"lines,omitempty"`
}

func toOrderResponse(o *model.Order) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		Status:       string(o.Status),
		Subtotal:     o.Subtotal.StringFixed(2),
		ShippingCost: o.ShippingCost.StringFixed(2),
		Total:        o.Total.StringFixed(2),
		PaymentID:    o.PaymentID,
		PreferenceID: o.PreferenceID,
		CreatedAt:    o.CreatedAt.Format(time.RFC3339),
	}
	for _, line := range o.Lines {
		resp.Lines = append(resp.Lines, orderLineResponse{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
		})
	}
	return resp
}

// CreateOrder оформляет новый заказ текущего пользователя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.FullName == "" || req.ShippingAddress == "" || req.District == "" ||
		!validation.IsValidDNI(req.DNI) || !validation.IsValidPhone(req.Phone) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	placeReq := service.PlaceOrderRequest{
		FullName:        req.FullName,
		ShippingAddress: req.ShippingAddress,
		Department:      req.Department,
		Province:        req.Province,
		District:        req.District,
		PostalCode:      req.PostalCode,
		DNI:             req.DNI,
		Phone:           req.Phone,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	}
	for _, item := range req.Items {
		placeReq.Items = append(placeReq.Items, service.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.service.PlaceOrder(r.Context(), user.ID, placeReq)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyOrder), errors.Is(err, service.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, "No hay productos en el pedido")
		case errors.Is(err, repository.ErrProductNotFound):
			writeError(w, http.StatusNotFound, "Producto no encontrado")
		case errors.Is(err, repository.ErrInsufficientStock):
			writeError(w, http.StatusConflict, "Stock insuficiente")
		default:
			h.logger.Error("create order error", zap.Error(err), zap.Int64("userID", user.ID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// GetMyOrders возвращает список заказов текущего пользователя.
func (h *Handler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.GetOrdersByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.Int64("userID", user.ID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetOrder возвращает заказ с позициями. Видеть заказ могут только его
// владелец и администратор.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get order error", zap.Error(err), zap.Int64("orderID", orderID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if order.UserID != user.ID && user.Role != model.UserRoleAdmin {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type adminOrdersResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int64           `json:"total"`
	Pages  int64           `json:"pages"`
	Page   int             `json:"page"`
}

// GetAllOrders возвращает страницу заказов для админки.
func (h *Handler) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 10
	}

	orders, total, err := h.service.GetOrders(r.Context(), limit, (page-1)*limit)
	if err != nil {
		h.logger.Error("get all orders error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := adminOrdersResponse{
		Orders: make([]orderResponse, 0, len(orders)),
		Total:  total,
		Pages:  (total + int64(limit) - 1) / int64(limit),
		Page:   page,
	}
	for i := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(&orders[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus изменяет статус заказа из админки.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err = h.service.UpdateOrderStatus(r.Context(), orderID, model.OrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("update order status error", zap.Error(err), zap.Int64("orderID", orderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

type configResponse struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// GetConfigs возвращает конфигурацию магазина.
func (h *Handler) GetConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.GetConfigs(r.Context())
	if err != nil {
		h.logger.Error("get configs error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]configResponse, 0, len(configs))
	for _, c := range configs {
		resp = append(resp, configResponse{
			Key:         c.Key,
			Value:       c.Value,
			Type:        c.Type,
			Description: c.Description,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type updateConfigRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// UpdateConfig изменяет значение ключа конфигурации.
// Стоимость уже оформленных заказов не пересчитывается.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Key == "" || req.Value == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateConfig(r.Context(), req.Key, req.Value); err != nil {
		if errors.Is(err, repository.ErrConfigNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("update config error", zap.Error(err), zap.String("key", req.Key))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type subscribeRequest struct {
	Email string `json:"email"`
}

// SubscribeNewsletter подписывает email на рассылку магазина.
func (h *Handler) SubscribeNewsletter(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidEmail(req.Email) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if _, err := h.service.SubscribeNewsletter(r.Context(), req.Email); err != nil {
		if errors.Is(err, repository.ErrAlreadySubscribed) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("subscribe newsletter error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}
