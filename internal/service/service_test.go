package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eguva/eguva-backend/internal/mercadopago"
	"github.com/eguva/eguva-backend/internal/model"
	"github.com/eguva/eguva-backend/internal/repository"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type stubRepo struct {
	createUserID  int64
	createUserErr error

	getUser    *model.User
	getUserErr error

	product    *model.Product
	productErr error

	createOrderErr error
	createdOrder   *model.Order

	order    *model.Order
	orderErr error

	markPaidAlready   bool
	markPaidErr       error
	markPaidCalls     int
	markPaidOrderID   int64
	markPaidPaymentID string

	setStatusOrderID int64
	setStatusValues  []model.OrderStatus

	preferenceOrderID int64
	preferenceID      string

	enqueuedRetries []model.WebhookRetry
	pendingRetries  []model.WebhookRetry
	attemptedIDs    []string
	resolvedIDs     []string
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, name, email string, passwordHash []byte, role model.UserRole) (int64, error) {
	return s.createUserID, s.createUserErr
}

func (s *stubRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser, s.getUserErr
}

func (s *stubRepo) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.product, s.productErr
}

func (s *stubRepo) CreateOrder(ctx context.Context, order *model.Order) error {
	if s.createOrderErr != nil {
		return s.createOrderErr
	}
	order.ID = 7
	order.Status = model.OrderStatusPending
	s.createdOrder = order
	return nil
}

func (s *stubRepo) GetOrderWithLines(ctx context.Context, id int64) (*model.Order, error) {
	return s.order, s.orderErr
}

func (s *stubRepo) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return nil, nil
}

func (s *stubRepo) GetOrders(ctx context.Context, limit, offset int) ([]model.Order, int64, error) {
	return nil, 0, nil
}

func (s *stubRepo) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	return nil
}

func (s *stubRepo) SetOrderPreference(ctx context.Context, orderID int64, preferenceID string) error {
	s.preferenceOrderID = orderID
	s.preferenceID = preferenceID
	return nil
}

func (s *stubRepo) MarkOrderPaid(ctx context.Context, orderID int64, paymentID string) (bool, error) {
	s.markPaidCalls++
	s.markPaidOrderID = orderID
	s.markPaidPaymentID = paymentID
	return s.markPaidAlready, s.markPaidErr
}

func (s *stubRepo) SetOrderPaymentStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	s.setStatusOrderID = orderID
	s.setStatusValues = append(s.setStatusValues, status)
	return nil
}

func (s *stubRepo) GetConfigs(ctx context.Context) ([]model.ConfigEntry, error) {
	return nil, nil
}

func (s *stubRepo) UpdateConfig(ctx context.Context, key, value string) error {
	return nil
}

func (s *stubRepo) SubscribeNewsletter(ctx context.Context, email string) (int64, error) {
	return 0, nil
}

func (s *stubRepo) EnqueueWebhookRetry(ctx context.Context, id, paymentID, reason string) error {
	s.enqueuedRetries = append(s.enqueuedRetries, model.WebhookRetry{
		ID:        id,
		PaymentID: paymentID,
		Reason:    reason,
	})
	return nil
}

func (s *stubRepo) PendingWebhookRetries(ctx context.Context, limit int) ([]model.WebhookRetry, error) {
	return s.pendingRetries, nil
}

func (s *stubRepo) MarkWebhookRetryAttempt(ctx context.Context, id string) error {
	s.attemptedIDs = append(s.attemptedIDs, id)
	return nil
}

func (s *stubRepo) ResolveWebhookRetry(ctx context.Context, id string) error {
	s.resolvedIDs = append(s.resolvedIDs, id)
	return nil
}

type stubProvider struct {
	prefResp *mercadopago.PreferenceResponse
	prefErr  error
	prefReq  *mercadopago.PreferenceRequest

	payResp *mercadopago.Payment
	payErr  error
	payReq  *mercadopago.PaymentRequest

	payment     *mercadopago.Payment
	getErr      error
	getPayCalls int
}

func (p *stubProvider) CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.PreferenceResponse, error) {
	p.prefReq = &req
	return p.prefResp, p.prefErr
}

func (p *stubProvider) CreatePayment(ctx context.Context, req mercadopago.PaymentRequest) (*mercadopago.Payment, error) {
	p.payReq = &req
	return p.payResp, p.payErr
}

func (p *stubProvider) GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error) {
	p.getPayCalls++
	return p.payment, p.getErr
}

func newTestService(repo Repository, payments PaymentProvider) *Service {
	return NewService(repo, payments, zap.NewNop(), "http://localhost:5173", "https://api.eguva.pe")
}

func TestPlaceOrder_EmptyOrder(t *testing.T) {
	svc := newTestService(&stubRepo{}, nil)

	_, err := svc.PlaceOrder(context.Background(), 1, PlaceOrderRequest{})
	if !errors.Is(err, ErrEmptyOrder) {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	svc := newTestService(&stubRepo{}, nil)

	_, err := svc.PlaceOrder(context.Background(), 1, PlaceOrderRequest{
		Items: []OrderItem{{ProductID: 3, Quantity: 0}},
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestPlaceOrder_PropagatesInsufficientStock(t *testing.T) {
	repo := &stubRepo{createOrderErr: repository.ErrInsufficientStock}
	svc := newTestService(repo, nil)

	_, err := svc.PlaceOrder(context.Background(), 1, PlaceOrderRequest{
		Items: []OrderItem{{ProductID: 3, Quantity: 2}},
	})
	if !errors.Is(err, repository.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestPlaceOrder_BuildsLines(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo, nil)

	order, err := svc.PlaceOrder(context.Background(), 42, PlaceOrderRequest{
		Items: []OrderItem{
			{ProductID: 3, Quantity: 2},
			{ProductID: 5, Quantity: 1},
		},
		FullName: "Maria Quispe",
		Province: "Trujillo",
	})
	if err != nil {
		t.Fatalf("PlaceOrder error: %v", err)
	}
	if order.ID != 7 {
		t.Fatalf("order.ID = %d, want 7", order.ID)
	}
	if order.Status != model.OrderStatusPending {
		t.Fatalf("status = %s, want PENDING", order.Status)
	}
	if len(repo.createdOrder.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(repo.createdOrder.Lines))
	}
	if repo.createdOrder.UserID != 42 {
		t.Fatalf("userID = %d, want 42", repo.createdOrder.UserID)
	}
}

func TestAuthenticateUser_InvalidCredentials(t *testing.T) {
	hashed := hashPassword("user@example.com", "correct")
	repo := &stubRepo{
		getUser: &model.User{
			ID:           1,
			Email:        "user@example.com",
			PasswordHash: hashed,
		},
	}
	svc := newTestService(repo, nil)

	_, err := svc.AuthenticateUser(context.Background(), "user@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUpdateOrderStatus_InvalidStatus(t *testing.T) {
	svc := newTestService(&stubRepo{}, nil)

	err := svc.UpdateOrderStatus(context.Background(), 1, model.OrderStatus("UNKNOWN"))
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdateConfig_RejectsNonNumericMoneyKey(t *testing.T) {
	svc := newTestService(&stubRepo{}, nil)

	err := svc.UpdateConfig(context.Background(), model.ConfigKeyShippingCost, "abc")
	if err == nil {
		t.Fatalf("expected error for non-numeric shipping_cost")
	}
}

func TestStartWebhookRetries_NoProvider(t *testing.T) {
	svc := newTestService(&stubRepo{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})

	go func() {
		svc.StartWebhookRetries(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("StartWebhookRetries did not return without provider")
	}
}
