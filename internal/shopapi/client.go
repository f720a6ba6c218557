package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxBodyBytes = 1 << 20

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx; it is forwarded on every backend call.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxFailures uint32
	OpenTimeout time.Duration
	HTTPClient  *http.Client
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type response struct {
	status int
	env    envelope
}

type client struct {
	baseURL *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[response]
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (port.ShopAPI, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("baseURL is empty")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("url.Parse: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	transport := httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	instrumented := *httpClient
	instrumented.Transport = otelhttp.NewTransport(transport)

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
		Name:        "shop-api",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			var apiErr *Error
			return err == nil || (errors.As(err, &apiErr) && apiErr.IsRejection())
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	return &client{
		baseURL: base,
		http:    &instrumented,
		breaker: breaker,
		logger:  logger,
	}, nil
}

type itemsRequest struct {
	Items []domain.ItemQuantity `json:"items"`
}

func (c *client) Preview(ctx context.Context, items []domain.ItemQuantity) (domain.CheckoutPreview, error) {
	var preview domain.CheckoutPreview
	if err := c.call(ctx, "Preview", http.MethodPost, "/checkout/preview", nil, itemsRequest{Items: items}, &preview); err != nil {
		return domain.CheckoutPreview{}, err
	}
	return preview, nil
}

type createOrderRequest struct {
	domain.Address
	Items          []domain.ItemQuantity `json:"items"`
	IdempotencyKey string                `json:"idempotencyKey,omitempty"`
}

func (c *client) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.PlacedOrder, error) {
	header := http.Header{}
	if req.IdempotencyKey != "" {
		header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	body := createOrderRequest{Address: req.Address, Items: req.Items, IdempotencyKey: req.IdempotencyKey}

	var order domain.PlacedOrder
	if err := c.call(ctx, "CreateOrder", http.MethodPost, "/orders", header, body, &order); err != nil {
		return domain.PlacedOrder{}, err
	}
	if order.OrderID == "" {
		return domain.PlacedOrder{}, &Error{Op: "CreateOrder", Err: fmt.Errorf("%w: response has no orderId", ErrUnavailable)}
	}
	return order, nil
}

type paymentIntentRequest struct {
	OrderID  domain.OrderID `json:"orderId"`
	Amount   json.Number    `json:"amount"`
	Currency string         `json:"currency"`
	Provider string         `json:"provider"`
	Method   string         `json:"method"`
}

func (c *client) CreatePaymentIntent(ctx context.Context, req domain.PaymentIntentRequest) (domain.PaymentIntent, error) {
	body := paymentIntentRequest{
		OrderID:  req.OrderID,
		Amount:   json.Number(req.Amount.String()),
		Currency: req.Currency,
		Provider: req.Provider,
		Method:   req.Method,
	}

	var intent domain.PaymentIntent
	if err := c.call(ctx, "CreatePaymentIntent", http.MethodPost, "/payments/intent", nil, body, &intent); err != nil {
		return domain.PaymentIntent{}, err
	}
	return intent, nil
}

type verifyRequest struct {
	OrderID            domain.OrderID `json:"orderId"`
	ProviderOrderRef   string         `json:"providerOrderRef"`
	ProviderPaymentRef string         `json:"providerPaymentRef"`
	ProviderSignature  string         `json:"providerSignature"`
}

func (c *client) VerifyPayment(ctx context.Context, req domain.PaymentVerification) (bool, error) {
	body := verifyRequest{
		OrderID:            req.OrderID,
		ProviderOrderRef:   req.ProviderOrderRef,
		ProviderPaymentRef: req.ProviderPaymentRef,
		ProviderSignature:  req.ProviderSignature,
	}

	var data json.RawMessage
	err := c.call(ctx, "VerifyPayment", http.MethodPost, "/payments/verify", nil, body, &data)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.IsRejection() {
			c.logger.Warn("Payment verification refused",
				zap.Stringer("order_id", req.OrderID),
				zap.Int("status", apiErr.Status),
				zap.String("message", apiErr.Message))
			return false, nil
		}
		return false, err
	}

	if verified, ok := verdict(data); ok && !verified {
		c.logger.Warn("Payment verification refused", zap.Stringer("order_id", req.OrderID))
		return false, nil
	}
	return true, nil
}

// verifyResult is the optional verdict carried in data; verified wins over success.
type verifyResult struct {
	Success  *bool `json:"success"`
	Verified *bool `json:"verified"`
}

// verdict reports the verdict in data, if data is an object carrying one.
func verdict(data json.RawMessage) (verified bool, ok bool) {
	var res verifyResult
	if len(data) == 0 || json.Unmarshal(data, &res) != nil {
		return false, false
	}
	switch {
	case res.Verified != nil:
		return *res.Verified, true
	case res.Success != nil:
		return *res.Success, true
	}
	return false, false
}

func (c *client) GetOrder(ctx context.Context, id domain.OrderID) (domain.OrderDetails, error) {
	if id == "" {
		return domain.OrderDetails{}, fmt.Errorf("orderID is empty")
	}

	var order domain.OrderDetails
	if err := c.call(ctx, "GetOrder", http.MethodGet, "/orders/"+url.PathEscape(id.String()), nil, nil, &order); err != nil {
		return domain.OrderDetails{}, err
	}
	return order, nil
}

func (c *client) ListMyOrders(ctx context.Context) ([]domain.OrderDetails, error) {
	var orders []domain.OrderDetails
	if err := c.call(ctx, "ListMyOrders", http.MethodGet, "/orders/my", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// call performs one request through the breaker. It never retries.
func (c *client) call(ctx context.Context, op, method, path string, header http.Header, in, out any) error {
	resp, err := c.breaker.Execute(func() (response, error) {
		return c.do(ctx, op, method, path, header, in)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &Error{Op: op, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
		}
		return err
	}

	if out == nil || len(resp.env.Data) == 0 || string(resp.env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.env.Data, out); err != nil {
		return &Error{Op: op, Status: resp.status, Err: fmt.Errorf("%w: json.Unmarshal: %w", ErrUnavailable, err)}
	}
	return nil
}

func (c *client) do(ctx context.Context, op, method, path string, header http.Header, in any) (response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return response{}, fmt.Errorf("json.Marshal: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return response{}, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := tokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return response{}, &Error{Op: op, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return response{}, &Error{Op: op, Status: res.StatusCode, Err: fmt.Errorf("%w: io.ReadAll: %w", ErrUnavailable, err)}
	}

	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if res.StatusCode >= http.StatusInternalServerError {
		return response{}, &Error{Op: op, Status: res.StatusCode, Message: env.Message, Err: fmt.Errorf("%w: status %d", ErrUnavailable, res.StatusCode)}
	}
	if res.StatusCode >= http.StatusBadRequest {
		return response{}, &Error{Op: op, Status: res.StatusCode, Message: rejectionMessage(env.Message, res.StatusCode)}
	}
	if decodeErr != nil {
		return response{}, &Error{Op: op, Status: res.StatusCode, Err: fmt.Errorf("%w: json.Unmarshal: %w", ErrUnavailable, decodeErr)}
	}
	if !env.Success {
		return response{}, &Error{Op: op, Status: res.StatusCode, Message: rejectionMessage(env.Message, res.StatusCode)}
	}

	return response{status: res.StatusCode, env: env}, nil
}

func rejectionMessage(message string, status int) string {
	if message != "" {
		return message
	}
	return http.StatusText(status)
}
