// Package model содержит доменные сущности магазина Eguva.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserRole описывает роль пользователя в системе.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

// User представляет зарегистрированного пользователя магазина.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash []byte
	Role         UserRole
	CreatedAt    time.Time
}

// Product представляет товар каталога. Stock никогда не опускается ниже нуля.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int32
}

// OrderStatus описывает статус обработки заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
)

// IsValid сообщает, является ли значение допустимым статусом заказа.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// Order описывает заказ пользователя: шапка с суммами, адресом доставки и
// ссылками на платёж в MercadoPago. Инвариант: Total = Subtotal + ShippingCost.
type Order struct {
	ID           int64
	UserID       int64
	FullName     string
	Status       OrderStatus
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal

	ShippingAddress string
	Department      string
	Province        string
	District        string
	PostalCode      string
	DNI             string
	Phone           string

	PaymentMethod string
	Notes         string

	// PreferenceID устанавливается при создании preference в MercadoPago,
	// PaymentID — при первом подтверждённом платеже.
	PreferenceID string
	PaymentID    string

	CreatedAt time.Time

	Lines []OrderLine
}

// OrderLine описывает одну позицию заказа. UnitPrice — снимок цены товара
// на момент оформления; после создания заказа не перечитывается из каталога.
type OrderLine struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int32
	UnitPrice decimal.Decimal
}

// ConfigEntry представляет запись конфигурации магазина вида ключ-значение.
type ConfigEntry struct {
	Key         string
	Value       string
	Type        string
	Description string
}

// Ключи конфигурации, участвующие в расчёте стоимости заказа.
const (
	ConfigKeyShippingCost          = "shipping_cost"
	ConfigKeyFreeShippingThreshold = "free_shipping_threshold"
)

// NewsletterSubscription описывает подписку на рассылку магазина.
type NewsletterSubscription struct {
	ID        int64
	Email     string
	CreatedAt time.Time
}

// WebhookRetry описывает отложенную повторную обработку уведомления о платеже,
// которую не удалось применить с первого раза.
type WebhookRetry struct {
	ID        string
	PaymentID string
	Reason    string
	Attempts  int32
	CreatedAt time.Time
}
