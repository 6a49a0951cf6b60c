package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func TestAdminListOrders_PassesFilter(t *testing.T) {
	svc := &mockOrdersService{}
	handler := NewAdminHandler(svc, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := withPrincipal(httptest.NewRequest(http.MethodGet, "/?status=shipped&search=ada", nil), testAdmin)
	handler.ListOrders(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "[]\n", recorder.Body.String())
	assert.Equal(t, domain.OrderFilter{Status: domain.OrderStatusShipped, Search: "ada"}, svc.filter)
}

func TestAdminListOrders_UserForbidden(t *testing.T) {
	svc := &mockOrdersService{err: fmt.Errorf("%w: user principal not accepted here", domain.ErrForbidden)}
	handler := NewAdminHandler(svc, 5*time.Second)

	recorder := httptest.NewRecorder()
	handler.ListOrders(recorder, withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), testUser))

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestAdminUpdateStatus(t *testing.T) {
	o := testOrder()
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"ship", `{"status":"shipped"}`, nil, http.StatusOK},
		{"missing status", `{}`, nil, http.StatusBadRequest},
		{"bad json", `{"status":`, nil, http.StatusBadRequest},
		{"unknown status", `{"status":"lost"}`, fmt.Errorf("%w: unknown status", domain.ErrInvalidRequest), http.StatusBadRequest},
		{"backward", `{"status":"shipped"}`, fmt.Errorf("%w: delivered -> shipped", domain.ErrInvalidTransition), http.StatusConflict},
		{"terminal", `{"status":"shipped"}`, fmt.Errorf("%w: order is cancelled", domain.ErrOrderTerminal), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrdersService{order: o, err: tt.err}
			handler := NewAdminHandler(svc, 5*time.Second)

			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.body))
			request = withPrincipal(withURLParams(request, "order_id", o.ID.String()), testAdmin)
			handler.UpdateStatus(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			if tt.wantStatus == http.StatusOK {
				var got OrderResponseDTO
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
				assert.Equal(t, domain.OrderStatusShipped, got.Status)
				assert.Equal(t, "shipped", svc.status)
			}
		})
	}
}

func TestAdminNextStatus(t *testing.T) {
	o := testOrder()

	recorder := httptest.NewRecorder()
	request := withPrincipal(withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), "order_id", o.ID.String()), testAdmin)
	NewAdminHandler(&mockOrdersService{next: domain.OrderStatusShipped}, 5*time.Second).NextStatus(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	var got NextStatusResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
	assert.True(t, got.HasNext)
	assert.Equal(t, domain.OrderStatusShipped, got.NextStatus)

	recorder = httptest.NewRecorder()
	NewAdminHandler(&mockOrdersService{}, 5*time.Second).NextStatus(recorder, request)
	require.Equal(t, http.StatusOK, recorder.Code)
	got = NextStatusResponseDTO{}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
	assert.False(t, got.HasNext)
}

func TestAdminStats(t *testing.T) {
	svc := &mockOrdersService{stats: map[domain.OrderStatus]int{
		domain.OrderStatusPlaced:         2,
		domain.OrderStatusShipped:        1,
		domain.OrderStatusOutForDelivery: 0,
		domain.OrderStatusDelivered:      3,
		domain.OrderStatusCancelled:      0,
	}}

	recorder := httptest.NewRecorder()
	NewAdminHandler(svc, 5*time.Second).Stats(recorder, withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), testAdmin))

	require.Equal(t, http.StatusOK, recorder.Code)
	var got StatsResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
	assert.Equal(t, 6, got.Total)
	assert.Equal(t, 3, got.ByStatus[domain.OrderStatusDelivered])
	assert.Contains(t, got.ByStatus, domain.OrderStatusCancelled)
}
