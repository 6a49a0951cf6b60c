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

var testTime = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func TestGetCart_Success(t *testing.T) {
	svc := &mockCartService{cart: &domain.Cart{UserID: "u1", Lines: []domain.CartLine{{ProductRef: "P1", Quantity: 2}}}}
	handler := NewCartHandler(svc, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), testUser)
	handler.GetCart(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	var got domain.Cart
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
	assert.Equal(t, "u1", got.UserID)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)
}

func TestGetCart_Unauthorized(t *testing.T) {
	handler := NewCartHandler(&mockCartService{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	handler.GetCart(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "unauthenticated", resp.Code)
}

func TestAddItem(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"success", `{"product_ref":"P1","quantity":2}`, nil, http.StatusCreated, ""},
		{"invalid json", `{"product_ref":`, nil, http.StatusBadRequest, "invalid_request"},
		{"bad quantity", `{"product_ref":"P1","quantity":0}`, domain.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
		{"fractional quantity", `{"product_ref":"P1","quantity":1.5}`, nil, http.StatusBadRequest, "invalid_quantity"},
		{"quantity as text", `{"product_ref":"P1","quantity":"two"}`, nil, http.StatusBadRequest, "invalid_request"},
		{"admin", `{"product_ref":"P1","quantity":1}`, fmt.Errorf("%w: admin", domain.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"store down", `{"product_ref":"P1","quantity":1}`, fmt.Errorf("%w: redis: dial tcp", domain.ErrStoreUnavailable), http.StatusServiceUnavailable, "service_unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCartService{err: tt.svcErr}
			handler := NewCartHandler(svc, 5*time.Second)

			recorder := httptest.NewRecorder()
			request := withPrincipal(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)), testUser)
			handler.AddItem(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			if tt.wantCode == "" {
				assert.Equal(t, "P1", svc.lastRef)
				assert.Equal(t, 2, svc.lastQty)
				return
			}
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotContains(t, resp.Error+resp.Details, "dial tcp", "store details must not leak")
		})
	}
}

func TestUpdateQuantity_UsesPathRef(t *testing.T) {
	svc := &mockCartService{}
	handler := NewCartHandler(svc, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"quantity":0}`))
	request = withPrincipal(withURLParams(request, "product_ref", "P7"), testUser)
	handler.UpdateQuantity(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "P7", svc.lastRef)
	assert.Equal(t, 0, svc.lastQty)
}

func TestUpdateQuantity_MissingQuantity(t *testing.T) {
	handler := NewCartHandler(&mockCartService{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{}`))
	request = withPrincipal(withURLParams(request, "product_ref", "P7"), testUser)
	handler.UpdateQuantity(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUpdateQuantity_FractionalQuantity(t *testing.T) {
	svc := &mockCartService{}
	handler := NewCartHandler(svc, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"quantity":2.5}`))
	request = withPrincipal(withURLParams(request, "product_ref", "P7"), testUser)
	handler.UpdateQuantity(recorder, request)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "invalid_quantity", resp.Code)
	assert.Empty(t, svc.lastRef, "service must not be called")
}

func TestRemoveItemAndClear(t *testing.T) {
	svc := &mockCartService{}
	handler := NewCartHandler(svc, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := withPrincipal(withURLParams(httptest.NewRequest(http.MethodDelete, "/", nil), "product_ref", "P1"), testUser)
	handler.RemoveItem(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "P1", svc.lastRef)

	recorder = httptest.NewRecorder()
	handler.ClearCart(recorder, withPrincipal(httptest.NewRequest(http.MethodDelete, "/", nil), testUser))
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.True(t, svc.cleared)
}
