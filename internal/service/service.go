// Package service реализует бизнес-логику магазина Eguva: оформление заказов,
// платежи через MercadoPago и сверку статусов по вебхукам.
package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eguva/eguva-backend/internal/mercadopago"
	"github.com/eguva/eguva-backend/internal/model"
)

// ErrEmptyOrder возвращается при попытке оформить заказ без позиций.
var (
	ErrEmptyOrder = errors.New("order has no items")
	// ErrInvalidQuantity возвращается, если количество в позиции меньше единицы.
	ErrInvalidQuantity = errors.New("item quantity must be at least 1")
	// ErrInvalidAmount возвращается, если сумма платежа не совпадает с суммой заказа.
	ErrInvalidAmount = errors.New("invalid payment amount")
	// ErrInvalidCredentials возвращается при неверной паре email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidStatus возвращается при попытке установить неизвестный статус заказа.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrPaymentsDisabled возвращается, если платёжный провайдер не сконфигурирован.
	ErrPaymentsDisabled = errors.New("payment provider not configured")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, name, email string, passwordHash []byte, role model.UserRole) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	GetProduct(ctx context.Context, id int64) (*model.Product, error)

	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrderWithLines(ctx context.Context, id int64) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrders(ctx context.Context, limit, offset int) ([]model.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error

	SetOrderPreference(ctx context.Context, orderID int64, preferenceID string) error
	MarkOrderPaid(ctx context.Context, orderID int64, paymentID string) (bool, error)
	SetOrderPaymentStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	GetConfigs(ctx context.Context) ([]model.ConfigEntry, error)
	UpdateConfig(ctx context.Context, key, value string) error

	SubscribeNewsletter(ctx context.Context, email string) (int64, error)

	EnqueueWebhookRetry(ctx context.Context, id, paymentID, reason string) error
	PendingWebhookRetries(ctx context.Context, limit int) ([]model.WebhookRetry, error)
	MarkWebhookRetryAttempt(ctx context.Context, id string) error
	ResolveWebhookRetry(ctx context.Context, id string) error
}

// PaymentProvider описывает контракт платёжного провайдера.
type PaymentProvider interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.PreferenceResponse, error)
	CreatePayment(ctx context.Context, req mercadopago.PaymentRequest) (*mercadopago.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

// Service содержит бизнес-логику магазина Eguva.
type Service struct {
	repo     Repository
	payments PaymentProvider
	logger   *zap.Logger

	frontendURL string
	backendURL  string
}

// NewService создаёт сервис с указанным репозиторием и платёжным провайдером.
func NewService(repo Repository, payments PaymentProvider, logger *zap.Logger, frontendURL, backendURL string) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:        repo,
		payments:    payments,
		logger:      logger,
		frontendURL: frontendURL,
		backendURL:  backendURL,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, name, email, password string) (int64, error) {
	hashed := hashPassword(email, password)
	return s.repo.CreateUser(ctx, name, email, hashed, model.UserRoleCustomer)
}

// AuthenticateUser проверяет email и пароль пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	hashed := hashPassword(email, password)
	if !hmac.Equal(hashed, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func hashPassword(email, password string) []byte {
	sum := sha256.Sum256([]byte(email + ":" + password))
	return sum[:]
}

// OrderItem описывает запрошенную позицию при оформлении заказа.
type OrderItem struct {
	ProductID int64
	Quantity  int32
}

// PlaceOrderRequest содержит данные для оформления заказа.
type PlaceOrderRequest struct {
	Items []OrderItem

	FullName        string
	ShippingAddress string
	Department      string
	Province        string
	District        string
	PostalCode      string
	DNI             string
	Phone           string
	PaymentMethod   string
	Notes           string
}

// PlaceOrder оформляет заказ: проверяет позиции, валидирует остатки и
// атомарно сохраняет заказ со снимками цен. Остатки при оформлении не
// списываются — только проверяются; списание происходит при подтверждении
// оплаты. Возвращает созданный заказ со статусом PENDING.
func (s *Service) PlaceOrder(ctx context.Context, userID int64, req PlaceOrderRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	lines := make([]model.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: product %d", ErrInvalidQuantity, item.ProductID)
		}
		lines = append(lines, model.OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order := &model.Order{
		UserID:          userID,
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
		Lines:           lines,
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.Int64("orderID", order.ID),
		zap.Int64("userID", userID),
		zap.String("total", order.Total.StringFixed(2)))

	return order, nil
}

// GetOrder возвращает заказ с позициями.
func (s *Service) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return s.repo.GetOrderWithLines(ctx, id)
}

// GetOrdersByUser возвращает список заказов пользователя.
func (s *Service) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.GetOrdersByUser(ctx, userID)
}

// GetOrders возвращает страницу заказов и их общее количество для админки.
func (s *Service) GetOrders(ctx context.Context, limit, offset int) ([]model.Order, int64, error) {
	return s.repo.GetOrders(ctx, limit, offset)
}

// UpdateOrderStatus изменяет статус заказа из админки. Меняется только
// статус: остатки товаров не затрагиваются.
func (s *Service) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	return s.repo.UpdateOrderStatus(ctx, id, status)
}

// GetConfigs возвращает конфигурацию магазина.
func (s *Service) GetConfigs(ctx context.Context) ([]model.ConfigEntry, error) {
	return s.repo.GetConfigs(ctx)
}

// UpdateConfig изменяет значение ключа конфигурации. Уже оформленные заказы
// сохраняют стоимость, рассчитанную на момент оформления.
func (s *Service) UpdateConfig(ctx context.Context, key, value string) error {
	if _, err := decimal.NewFromString(value); err != nil {
		switch key {
		case model.ConfigKeyShippingCost, model.ConfigKeyFreeShippingThreshold:
			return fmt.Errorf("config %s must be a number: %w", key, err)
		}
	}
	return s.repo.UpdateConfig(ctx, key, value)
}

// SubscribeNewsletter подписывает email на рассылку магазина.
func (s *Service) SubscribeNewsletter(ctx context.Context, email string) (int64, error) {
	return s.repo.SubscribeNewsletter(ctx, email)
}
