package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eguva/eguva-backend/internal/mercadopago"
	"github.com/eguva/eguva-backend/internal/model"
	"github.com/eguva/eguva-backend/internal/repository"
)

const (
	// externalReferencePrefix — формат external_reference, связывающего платёж
	// MercadoPago с заказом: "EGUVA-<id заказа>".
	externalReferencePrefix = "EGUVA-"

	statementDescriptor    = "EGUVA"
	defaultItemDescription = "Ropa de segunda mano - Eguva"
	currencyID             = "PEN"
	phoneAreaCode          = "51"

	paymentMethodYape = "yape"

	webhookRetryInterval    = 30 * time.Second
	webhookRetryBatch       = 20
	webhookRetryMaxAttempts = 10
)

// ProviderFailure описывает сбой платёжного провайдера. Friendly — безопасное
// сообщение для клиента; сырой текст ошибки провайдера остаётся в логах.
type ProviderFailure struct {
	Friendly string
	Err      error
}

func (e *ProviderFailure) Error() string {
	return fmt.Sprintf("payment provider failure: %v", e.Err)
}

func (e *ProviderFailure) Unwrap() error {
	return e.Err
}

// PaymentPreference содержит результат создания preference.
type PaymentPreference struct {
	PreferenceID string
	RedirectURL  string
}

// PaymentInstrument содержит токенизированные платёжные данные для прямого
// списания.
type PaymentInstrument struct {
	Token             string
	PaymentMethodID   string
	Installments      int
	IssuerID          string
	TransactionAmount decimal.Decimal

	PayerEmail           string
	IdentificationType   string
	IdentificationNumber string
}

// PaymentResult содержит результат прямого списания.
type PaymentResult struct {
	PaymentID    int64
	Status       string
	StatusDetail string
	// Message заполняется для отклонённых платежей понятным покупателю текстом.
	Message string
}

// WebhookEvent описывает распарсенное webhook-уведомление MercadoPago.
// Статус платежа в уведомлении отсутствует намеренно: уведомление — лишь
// сигнал, актуальный статус запрашивается у провайдера.
type WebhookEvent struct {
	Type   string
	DataID string
}

func externalReference(orderID int64) string {
	return externalReferencePrefix + strconv.FormatInt(orderID, 10)
}

// parseExternalReference разбирает external_reference защитно: любое
// отклонение от формата означает, что платёж не относится к нашим заказам.
func parseExternalReference(ref string) (int64, bool) {
	raw, found := strings.CutPrefix(ref, externalReferencePrefix)
	if !found {
		return 0, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

// CreatePaymentPreference создаёт preference в MercadoPago по заказу и
// сохраняет её идентификатор. Повторный вызов создаёт новую preference на
// стороне провайдера и перезаписывает сохранённый идентификатор: дедупликации
// нет.
func (s *Service) CreatePaymentPreference(ctx context.Context, orderID int64) (*PaymentPreference, error) {
	if s.payments == nil {
		return nil, ErrPaymentsDisabled
	}

	order, err := s.repo.GetOrderWithLines(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items, err := s.preferenceItems(ctx, order)
	if err != nil {
		return nil, err
	}

	firstName, lastName := splitFullName(order.FullName)

	req := mercadopago.PreferenceRequest{
		Items: items,
		Payer: mercadopago.Payer{
			Name:    firstName,
			Surname: lastName,
			Phone: &mercadopago.Phone{
				AreaCode: phoneAreaCode,
				Number:   order.Phone,
			},
			Address: &mercadopago.Address{
				ZipCode:    order.PostalCode,
				StreetName: streetName(order),
			},
		},
		BackURLs: mercadopago.BackURLs{
			Success: s.frontendURL + "/pago/exitoso",
			Failure: s.frontendURL + "/pago/fallido",
			Pending: s.frontendURL + "/pago/pendiente",
		},
		AutoReturn:          "approved",
		BinaryMode:          true,
		StatementDescriptor: statementDescriptor,
		ExternalReference:   externalReference(order.ID),
		NotificationURL:     s.notificationURL(),
	}

	resp, err := s.payments.CreatePreference(ctx, req)
	if err != nil {
		s.logger.Error("create preference failed",
			zap.Int64("orderID", orderID), zap.Error(err))
		return nil, &ProviderFailure{Friendly: friendlyProviderMessage(err), Err: err}
	}

	if err := s.repo.SetOrderPreference(ctx, orderID, resp.ID); err != nil {
		return nil, err
	}

	return &PaymentPreference{
		PreferenceID: resp.ID,
		RedirectURL:  resp.InitPoint,
	}, nil
}

// ProcessPayment выполняет синхронное списание с токенизированной картой или
// кошельком. При статусе approved заказ сразу переводится в PAID и остатки
// списываются — тем же защищённым путём, что и при вебхуке, поэтому повторное
// подтверждение того же заказа остатки не тронет.
func (s *Service) ProcessPayment(ctx context.Context, orderID int64, instrument PaymentInstrument) (*PaymentResult, error) {
	if s.payments == nil {
		return nil, ErrPaymentsDisabled
	}

	order, err := s.repo.GetOrderWithLines(ctx, orderID)
	if err != nil {
		return nil, err
	}

	amount := instrument.TransactionAmount.Round(2)
	if !amount.IsPositive() || !amount.Equal(order.Total) {
		return nil, fmt.Errorf("%w: got %s, order total %s",
			ErrInvalidAmount, amount.StringFixed(2), order.Total.StringFixed(2))
	}

	items, err := s.preferenceItems(ctx, order)
	if err != nil {
		return nil, err
	}

	firstName, lastName := splitFullName(order.FullName)
	isYape := instrument.PaymentMethodID == paymentMethodYape

	payer := mercadopago.PaymentPayer{
		Email:     instrument.PayerEmail,
		FirstName: firstName,
		LastName:  lastName,
	}
	// Yape не требует ни документа, ни банка-эмитента.
	if !isYape && instrument.IdentificationNumber != "" {
		payer.Identification = &mercadopago.Identification{
			Type:   instrument.IdentificationType,
			Number: instrument.IdentificationNumber,
		}
	}

	req := mercadopago.PaymentRequest{
		TransactionAmount:   amount.InexactFloat64(),
		Token:               instrument.Token,
		Description:         fmt.Sprintf("Pedido #%d - Eguva", order.ID),
		StatementDescriptor: statementDescriptor,
		Installments:        max(instrument.Installments, 1),
		PaymentMethodID:     instrument.PaymentMethodID,
		BinaryMode:          true,
		Payer:               payer,
		ExternalReference:   externalReference(order.ID),
		AdditionalInfo: &mercadopago.AdditionalInfo{
			Items: items,
			Payer: &mercadopago.Payer{
				FirstName: firstName,
				LastName:  lastName,
				Phone: &mercadopago.Phone{
					AreaCode: phoneAreaCode,
					Number:   order.Phone,
				},
				Address: &mercadopago.Address{
					ZipCode:    order.PostalCode,
					StreetName: streetName(order),
				},
			},
		},
		NotificationURL: s.notificationURL(),
	}
	if !isYape {
		req.IssuerID = instrument.IssuerID
	}

	payment, err := s.payments.CreatePayment(ctx, req)
	if err != nil {
		s.logger.Error("create payment failed",
			zap.Int64("orderID", orderID), zap.Error(err))
		return nil, &ProviderFailure{Friendly: friendlyProviderMessage(err), Err: err}
	}

	if payment.Status == "approved" {
		paymentID := strconv.FormatInt(payment.ID, 10)
		alreadyPaid, err := s.repo.MarkOrderPaid(ctx, orderID, paymentID)
		if err != nil {
			return nil, fmt.Errorf("mark order paid: %w", err)
		}
		if alreadyPaid {
			s.logger.Info("order already paid, stock untouched",
				zap.Int64("orderID", orderID), zap.String("paymentID", paymentID))
		}
	}

	result := &PaymentResult{
		PaymentID:    payment.ID,
		Status:       payment.Status,
		StatusDetail: payment.StatusDetail,
	}
	if payment.Status == "rejected" {
		result.Message = rejectionMessage(payment.StatusDetail)
	}

	return result, nil
}

// HandleWebhookEvent обрабатывает верифицированное webhook-уведомление.
// Вызывается после того, как провайдеру уже отправлен 200 OK, поэтому ошибка
// обработки никогда не возвращается провайдеру: сбой логируется и уведомление
// ставится в очередь повторов.
func (s *Service) HandleWebhookEvent(ctx context.Context, event WebhookEvent) {
	if event.Type != "payment" || event.DataID == "" {
		return
	}

	if err := s.reconcilePayment(ctx, event.DataID); err != nil {
		s.logger.Error("webhook reconciliation failed",
			zap.String("paymentID", event.DataID), zap.Error(err))

		retryID := uuid.NewString()
		if enqErr := s.repo.EnqueueWebhookRetry(ctx, retryID, event.DataID, err.Error()); enqErr != nil {
			s.logger.Error("enqueue webhook retry failed",
				zap.String("paymentID", event.DataID), zap.Error(enqErr))
		}
	}
}

// reconcilePayment сверяет заказ с актуальным статусом платежа у провайдера.
// Уведомление — только сигнал: статус запрашивается у MercadoPago напрямую.
// Возвращает ошибку лишь при сбоях, которые имеет смысл повторять; платежи с
// чужим или некорректным external_reference отбрасываются молча.
func (s *Service) reconcilePayment(ctx context.Context, paymentID string) error {
	if s.payments == nil {
		return ErrPaymentsDisabled
	}

	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("get payment: %w", err)
	}

	orderID, ok := parseExternalReference(payment.ExternalReference)
	if !ok {
		s.logger.Warn("webhook for unknown external reference dropped",
			zap.String("paymentID", paymentID),
			zap.String("externalReference", payment.ExternalReference))
		return nil
	}

	switch payment.Status {
	case "approved":
		alreadyPaid, err := s.repo.MarkOrderPaid(ctx, orderID, paymentID)
		if err != nil {
			if errors.Is(err, repository.ErrOrderNotFound) {
				s.logger.Warn("webhook for missing order dropped",
					zap.Int64("orderID", orderID), zap.String("paymentID", paymentID))
				return nil
			}
			return fmt.Errorf("mark order paid: %w", err)
		}
		if alreadyPaid {
			s.logger.Info("duplicate payment notification ignored",
				zap.Int64("orderID", orderID), zap.String("paymentID", paymentID))
			return nil
		}
		s.logger.Info("order paid",
			zap.Int64("orderID", orderID), zap.String("paymentID", paymentID))
	case "rejected":
		if err := s.repo.SetOrderPaymentStatus(ctx, orderID, model.OrderStatusRejected); err != nil {
			return fmt.Errorf("set order rejected: %w", err)
		}
	case "in_process", "pending":
		if err := s.repo.SetOrderPaymentStatus(ctx, orderID, model.OrderStatusPending); err != nil {
			return fmt.Errorf("set order pending: %w", err)
		}
	default:
		// Неизвестные статусы игнорируются.
	}

	return nil
}

// StartWebhookRetries запускает фоновый процесс, дожимающий уведомления,
// обработка которых завершилась ошибкой.
func (s *Service) StartWebhookRetries(ctx context.Context) {
	if s.payments == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(webhookRetryInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processWebhookRetryBatch(ctx)
			}
		}
	}()
}

func (s *Service) processWebhookRetryBatch(ctx context.Context) {
	retries, err := s.repo.PendingWebhookRetries(ctx, webhookRetryBatch)
	if err != nil {
		s.logger.Error("load webhook retries failed", zap.Error(err))
		return
	}

	for _, retry := range retries {
		if retry.Attempts >= webhookRetryMaxAttempts {
			s.logger.Warn("webhook retry gave up, manual reconciliation required",
				zap.String("paymentID", retry.PaymentID),
				zap.String("reason", retry.Reason))
			_ = s.repo.ResolveWebhookRetry(ctx, retry.ID)
			continue
		}

		if err := s.repo.MarkWebhookRetryAttempt(ctx, retry.ID); err != nil {
			s.logger.Error("mark webhook retry attempt failed",
				zap.String("retryID", retry.ID), zap.Error(err))
			continue
		}

		if err := s.reconcilePayment(ctx, retry.PaymentID); err != nil {
			s.logger.Warn("webhook retry failed",
				zap.String("paymentID", retry.PaymentID), zap.Error(err))
			continue
		}

		if err := s.repo.ResolveWebhookRetry(ctx, retry.ID); err != nil {
			s.logger.Error("resolve webhook retry failed",
				zap.String("retryID", retry.ID), zap.Error(err))
		}
	}
}

func (s *Service) preferenceItems(ctx context.Context, order *model.Order) ([]mercadopago.PreferenceItem, error) {
	items := make([]mercadopago.PreferenceItem, 0, len(order.Lines)+1)

	for _, line := range order.Lines {
		title := fmt.Sprintf("Producto #%d", line.ProductID)
		description := defaultItemDescription

		product, err := s.repo.GetProduct(ctx, line.ProductID)
		if err == nil {
			title = product.Name
			if product.Description != "" {
				description = truncate(product.Description, 256)
			}
		} else if !errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}

		items = append(items, mercadopago.PreferenceItem{
			ID:          strconv.FormatInt(line.ProductID, 10),
			Title:       title,
			Description: description,
			CategoryID:  "fashion",
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.InexactFloat64(),
			CurrencyID:  currencyID,
		})
	}

	if order.ShippingCost.IsPositive() {
		items = append(items, mercadopago.PreferenceItem{
			ID:          "shipping",
			Title:       "Costo de Envío",
			Description: "Envío a nivel nacional por agencia",
			CategoryID:  "services",
			Quantity:    1,
			UnitPrice:   order.ShippingCost.InexactFloat64(),
			CurrencyID:  currencyID,
		})
	}

	return items, nil
}

// notificationURL возвращает адрес вебхука или пустую строку, если бэкенд не
// опубликован: MercadoPago не примет localhost.
func (s *Service) notificationURL() string {
	base := strings.TrimRight(strings.TrimSpace(s.backendURL), "/")
	if !strings.HasPrefix(base, "http") || strings.Contains(base, "localhost") {
		return ""
	}
	return base + "/api/payments/webhook"
}

func splitFullName(fullName string) (firstName, lastName string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "Cliente", "Eguva"
	}
	if len(parts) == 1 {
		return parts[0], "Eguva"
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func streetName(order *model.Order) string {
	if order.ShippingAddress != "" {
		return order.ShippingAddress
	}
	return fmt.Sprintf("%s, %s", order.District, order.Province)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

// friendlyProviderMessage переводит сырую ошибку провайдера в безопасную
// категорию для клиента. Полный текст ошибки остаётся только в логах.
func friendlyProviderMessage(err error) string {
	var apiErr *mercadopago.APIError
	raw := ""
	if errors.As(err, &apiErr) {
		raw = strings.ToLower(apiErr.Message)
	}

	switch {
	case strings.Contains(raw, "insufficient") || strings.Contains(raw, "amount"):
		return "Saldo insuficiente o monto inválido"
	case strings.Contains(raw, "expired"):
		return "El código ha expirado. Genera uno nuevo."
	case strings.Contains(raw, "invalid") && strings.Contains(raw, "token"):
		return "Token inválido. Intenta de nuevo."
	case strings.Contains(raw, "limit"):
		return "El monto supera el límite permitido"
	default:
		return "Error al procesar el pago. Intenta de nuevo."
	}
}

// rejectionMessage переводит status_detail отклонённого платежа в понятное
// покупателю сообщение.
func rejectionMessage(statusDetail string) string {
	if statusDetail == "" {
		return "El pago fue rechazado"
	}

	detail := strings.ToLower(statusDetail)
	switch {
	case strings.Contains(detail, "insufficient_amount"):
		return "Saldo insuficiente en tu cuenta"
	case strings.Contains(detail, "cc_rejected_bad_filled"):
		return "Datos de tarjeta incorrectos"
	case strings.Contains(detail, "cc_rejected_high_risk"):
		return "El pago fue rechazado por seguridad"
	case strings.Contains(detail, "cc_rejected_blacklist"):
		return "No se puede procesar este pago"
	case strings.Contains(detail, "cc_rejected_call_for_authorize"):
		return "Debes autorizar el pago con tu banco"
	case strings.Contains(detail, "cc_rejected_card_disabled"):
		return "Tu tarjeta está deshabilitada"
	case strings.Contains(detail, "cc_rejected_max_attempts"):
		return "Has superado el límite de intentos"
	default:
		return "El pago fue rechazado. Verifica los datos o intenta con otro medio."
	}
}
