package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/nikolayk812/storefront/internal/checkout"
	"github.com/nikolayk812/storefront/internal/httpapi"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/nikolayk812/storefront/internal/repository"
	"github.com/nikolayk812/storefront/internal/shopapi"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/currency"
)

// backend is a fake shop backend speaking the {success, message, data} envelope.
type backend struct {
	mu sync.Mutex

	previewStatus int
	verified      bool
	orderStatus   int

	orderRequests int
	tokens        []string
}

func (b *backend) update(fn func(b *backend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *backend) orders() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.orderRequests
}

func (b *backend) authTokens() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.tokens...)
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": success, "message": message, "data": data})
}

func (b *backend) handler() http.Handler {
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			b.tokens = append(b.tokens, r.Header.Get("Authorization"))
			b.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/checkout/preview", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		status := b.previewStatus
		b.mu.Unlock()

		if status >= http.StatusBadRequest {
			writeEnvelope(w, status, false, "preview unavailable", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, true, "", map[string]any{
			"items":          []any{},
			"totalAmount":    298,
			"deliveryCharge": 50,
			"payableAmount":  348,
		})
	})

	r.Post("/orders", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.orderRequests++
		b.mu.Unlock()

		writeEnvelope(w, http.StatusCreated, true, "", map[string]any{"orderId": 501, "payableAmount": 348})
	})

	r.Post("/payments/intent", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, "", map[string]any{
			"referenceId": "order_ref_1",
			"publicKey":   "rzp_test_key",
			"amount":      348,
			"currency":    "INR",
		})
	})

	r.Post("/payments/verify", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		verified := b.verified
		b.mu.Unlock()

		if !verified {
			writeEnvelope(w, http.StatusBadRequest, false, "signature mismatch", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, true, "", nil)
	})

	r.Get("/orders/my", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, "", []map[string]any{
			{"id": 501, "status": "PAID", "paymentStatus": "SUCCESS", "payableAmount": 348},
		})
	})

	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		status := b.orderStatus
		b.mu.Unlock()

		switch {
		case status >= http.StatusBadRequest:
			writeEnvelope(w, status, false, "Order not found", nil)
		default:
			writeEnvelope(w, http.StatusOK, true, "", map[string]any{
				"id":            chi.URLParam(r, "id"),
				"status":        "PAID",
				"paymentStatus": "SUCCESS",
				"payableAmount": 348,
			})
		}
	})

	return r
}

type testEnv struct {
	t        *testing.T
	backend  *backend
	sessions *httpapi.Registry
	router   http.Handler
	token    string
}

func newTestEnv(t *testing.T, widget port.PaymentWidget) *testEnv {
	t.Helper()

	logger := zaptest.NewLogger(t)
	be := &backend{verified: true}

	srv := httptest.NewServer(be.handler())
	t.Cleanup(srv.Close)

	api, err := shopapi.New(shopapi.Config{BaseURL: srv.URL}, logger)
	require.NoError(t, err)

	sessions, err := httpapi.NewRegistry(httpapi.RegistryConfig{
		Currency:  currency.INR,
		Snapshots: repository.NewMemorySnapshot(),
		API:       api,
		Checkout:  checkout.Options{NewKey: func() string { return "idem-1" }},
	}, logger)
	require.NoError(t, err)
	t.Cleanup(sessions.Close)

	router, err := httpapi.NewRouter(httpapi.Config{Sessions: sessions, API: api, Widget: widget}, logger)
	require.NoError(t, err)

	return &testEnv{t: t, backend: be, sessions: sessions, router: router}
}

func (e *testEnv) do(method, path, sessionID string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(e.t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(httpapi.SessionHeader, sessionID)
	}
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

const sessionID = "5b0c9a6e-2a3f-4c1d-9f5e-0d8c7b6a5e4f"

var tshirt = map[string]any{
	"id":           "tshirt-m-black",
	"name":         "Classic Tee",
	"displayLabel": "M / Black",
	"unitPrice":    "199",
	"colorTag":     "black",
}

var validAddress = map[string]string{
	"name":    "Asha",
	"phone":   "9876543210",
	"address": "12 MG Road",
	"city":    "Pune",
	"pincode": "411001",
}
