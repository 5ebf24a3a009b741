// Package mercadopago предоставляет клиент для платёжного API MercadoPago.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

const defaultBaseURL = "https://api.mercadopago.com"

// Client инкапсулирует HTTP-взаимодействие с API MercadoPago.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *retryablehttp.Client
}

// APIError описывает ошибку, возвращённую API MercadoPago. Message содержит
// сырой текст ошибки провайдера: он предназначен для логов, а не для клиента.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mercadopago: status %d: %s", e.StatusCode, e.Message)
}

// PreferenceItem описывает одну позицию платёжного запроса.
type PreferenceItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	CategoryID  string  `json:"category_id,omitempty"`
	Quantity    int32   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	CurrencyID  string  `json:"currency_id,omitempty"`
}

// Phone описывает телефон плательщика.
type Phone struct {
	AreaCode string `json:"area_code,omitempty"`
	Number   string `json:"number,omitempty"`
}

// Address описывает адрес плательщика.
type Address struct {
	ZipCode    string `json:"zip_code,omitempty"`
	StreetName string `json:"street_name,omitempty"`
}

// Payer описывает плательщика.
type Payer struct {
	Name      string   `json:"name,omitempty"`
	Surname   string   `json:"surname,omitempty"`
	Email     string   `json:"email,omitempty"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Phone     *Phone   `json:"phone,omitempty"`
	Address   *Address `json:"address,omitempty"`
}

// BackURLs содержит адреса возврата покупателя после оплаты.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PreferenceRequest описывает запрос создания preference.
type PreferenceRequest struct {
	Items               []PreferenceItem `json:"items"`
	Payer               Payer            `json:"payer"`
	BackURLs            BackURLs         `json:"back_urls"`
	AutoReturn          string           `json:"auto_return,omitempty"`
	BinaryMode          bool             `json:"binary_mode"`
	StatementDescriptor string           `json:"statement_descriptor,omitempty"`
	ExternalReference   string           `json:"external_reference"`
	NotificationURL     string           `json:"notification_url,omitempty"`
}

// PreferenceResponse содержит ответ на создание preference.
type PreferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// AdditionalInfo содержит дополнительные данные платежа для антифрода.
type AdditionalInfo struct {
	Items []PreferenceItem `json:"items,omitempty"`
	Payer *Payer           `json:"payer,omitempty"`
}

// Identification описывает документ плательщика.
type Identification struct {
	Type   string `json:"type,omitempty"`
	Number string `json:"number,omitempty"`
}

// PaymentPayer описывает плательщика при прямом списании.
type PaymentPayer struct {
	Email          string          `json:"email"`
	FirstName      string          `json:"first_name,omitempty"`
	LastName       string          `json:"last_name,omitempty"`
	Identification *Identification `json:"identification,omitempty"`
}

// PaymentRequest описывает запрос прямого списания с токенизированной картой
// или кошельком (Yape).
type PaymentRequest struct {
	TransactionAmount   float64         `json:"transaction_amount"`
	Token               string          `json:"token"`
	Description         string          `json:"description,omitempty"`
	StatementDescriptor string          `json:"statement_descriptor,omitempty"`
	Installments        int             `json:"installments"`
	PaymentMethodID     string          `json:"payment_method_id"`
	IssuerID            string          `json:"issuer_id,omitempty"`
	BinaryMode          bool            `json:"binary_mode"`
	Payer               PaymentPayer    `json:"payer"`
	ExternalReference   string          `json:"external_reference"`
	AdditionalInfo      *AdditionalInfo `json:"additional_info,omitempty"`
	NotificationURL     string          `json:"notification_url,omitempty"`
}

// Payment содержит сведения о платеже, возвращаемые MercadoPago.
type Payment struct {
	ID                int64  `json:"id"`
	Status            string `json:"status"`
	StatusDetail      string `json:"status_detail"`
	ExternalReference string `json:"external_reference"`
}

type apiErrorBody struct {
	Message string `json:"message"`
	Cause   []struct {
		Description string `json:"description"`
	} `json:"cause"`
}

// NewClient создаёт клиент MercadoPago с указанным access token.
func NewClient(accessToken string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:     defaultBaseURL,
		accessToken: accessToken,
		httpClient:  rc,
	}
}

// NewClientWithBaseURL создаёт клиент с нестандартным адресом API (для тестов).
func NewClientWithBaseURL(accessToken, baseURL string) *Client {
	c := NewClient(accessToken)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// CreatePreference создаёт preference и возвращает её идентификатор и адрес
// для редиректа покупателя.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*PreferenceResponse, error) {
	var resp PreferenceResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreatePayment выполняет прямое списание. Запрос сопровождается ключом
// идемпотентности, чтобы ретраи на сетевых сбоях не создавали два платежа.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	var resp Payment
	if err := c.do(ctx, http.MethodPost, "/v1/payments", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPayment запрашивает у MercadoPago актуальное состояние платежа.
// Это источник истины при обработке вебхуков: статус из тела уведомления
// не используется.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var resp Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil || c.accessToken == "" {
		return fmt.Errorf("mercadopago client not configured")
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Idempotency-Key", uuid.NewString())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.parseError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

func (c *Client) parseError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body apiErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if len(body.Cause) > 0 && body.Cause[0].Description != "" {
			apiErr.Message = body.Cause[0].Description
		} else {
			apiErr.Message = body.Message
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	return apiErr
}
