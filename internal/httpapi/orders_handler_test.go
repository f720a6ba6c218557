package httpapi_test

import (
	"net/http"
	"testing"

	"github.com/nikolayk812/storefront/internal/httpapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrders_Get(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:       "found",
			wantStatus: http.StatusOK,
		},
		{
			name:        "not found",
			status:      http.StatusNotFound,
			wantStatus:  http.StatusNotFound,
			wantCode:    "not_found",
			wantMessage: "Order not found",
		},
		{
			name:        "unauthorized",
			status:      http.StatusUnauthorized,
			wantStatus:  http.StatusUnauthorized,
			wantCode:    "unauthorized",
			wantMessage: "Order not found",
		},
		{
			name:        "backend down",
			status:      http.StatusInternalServerError,
			wantStatus:  http.StatusBadGateway,
			wantCode:    "backend_unavailable",
			wantMessage: "backend unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.backend.update(func(b *backend) { b.orderStatus = tt.status })

			rec := env.do(http.MethodGet, "/api/v1/orders/501", "", nil)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode == "" {
				order := decode[map[string]any](t, rec)
				assert.Equal(t, float64(501), order["id"])
				assert.Equal(t, "PAID", order["status"])
				assert.Equal(t, "SUCCESS", order["paymentStatus"])
				return
			}

			resp := decode[httpapi.ErrorResponse](t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMessage, resp.Error)
		})
	}
}

func TestOrders_List(t *testing.T) {
	env := newTestEnv(t, nil)
	env.token = "user-token"

	rec := env.do(http.MethodGet, "/api/v1/orders", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode[[]map[string]any](t, rec)
	require.Len(t, orders, 1)
	assert.Equal(t, float64(501), orders[0]["id"])
	assert.Equal(t, []string{"Bearer user-token"}, env.backend.authTokens())
}
