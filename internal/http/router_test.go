package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logging"
)

var testSecret = []byte("router-test-secret-0123456789")

func setupRouter(t *testing.T) (http.Handler, *auth.Issuer, *mockOrdersService) {
	t.Helper()
	return setupRouterWithLimit(t, 1<<20)
}

func setupRouterWithLimit(t *testing.T, maxBody int64) (http.Handler, *auth.Issuer, *mockOrdersService) {
	t.Helper()
	verifier, err := auth.NewVerifier(testSecret, "storefront")
	require.NoError(t, err)
	issuer := auth.NewIssuer(testSecret, "storefront", time.Hour, time.Hour)

	cartSvc := cart.NewService(cart.NewMemoryStore())
	ordersSvc := &mockOrdersService{order: testOrder(), stats: map[domain.OrderStatus]int{}}

	router := NewRouter(
		RouterConfig{RequestTimeout: 5 * time.Second, MaxRequestBodySize: maxBody, Logger: logging.Base()},
		Handlers{
			Cart:     NewCartHandler(cartSvc, time.Second),
			Checkout: NewCheckoutHandler(&mockCheckoutService{}, cartSvc, time.Second),
			Orders:   NewOrdersHandler(ordersSvc, time.Second),
			Admin:    NewAdminHandler(ordersSvc, time.Second),
		},
		auth.NewResolver(verifier),
	)
	return router, issuer, ordersSvc
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_HealthIsPublic(t *testing.T) {
	router, _, _ := setupRouter(t)

	rec := do(t, router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = do(t, router, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RequiresCredential(t *testing.T) {
	router, _, _ := setupRouter(t)

	for _, token := range []string{"", "garbage", "eyJhbGciOiJub25lIn0.e30."} {
		rec := do(t, router, http.MethodGet, "/api/v1/cart", token, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "token %q", token)
	}
}

func TestRouter_CartFlow(t *testing.T) {
	router, issuer, _ := setupRouter(t)
	token, err := issuer.IssueUser("u1")
	require.NoError(t, err)

	rec := do(t, router, http.MethodPost, "/api/v1/cart/items", token, `{"product_ref":"P1","quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/v1/cart/items/P1", token, `{"quantity":5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/cart", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var c domain.Cart
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&c))
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 5, c.Lines[0].Quantity)

	rec = do(t, router, http.MethodPost, "/api/v1/cart/items", token, `{"product_ref":"P1","quantity":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodDelete, "/api/v1/cart", token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_AdminCannotUseCart(t *testing.T) {
	router, issuer, _ := setupRouter(t)
	token, err := issuer.IssueAdmin("a1", "root", domain.RoleAdmin)
	require.NoError(t, err)

	rec := do(t, router, http.MethodGet, "/api/v1/cart", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_AdminRoutes(t *testing.T) {
	router, issuer, svc := setupRouter(t)
	token, err := issuer.IssueAdmin("a1", "root", domain.RoleAdmin)
	require.NoError(t, err)

	rec := do(t, router, http.MethodGet, "/api/v1/admin/orders?status=shipped", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.OrderStatusShipped, svc.filter.Status)

	rec = do(t, router, http.MethodGet, "/api/v1/admin/orders/stats", token, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/v1/admin/orders/"+svc.order.ID.String()+"/status", token, `{"status":"delivered"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "delivered", svc.status)
}

// endlessBody serves size bytes of JSON-ish padding and counts what was read.
type endlessBody struct {
	size int64
	read atomic.Int64
}

func (b *endlessBody) Read(p []byte) (int, error) {
	remain := b.size - b.read.Load()
	if remain <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remain {
		p = p[:remain]
	}
	for i := range p {
		p[i] = ' '
	}
	b.read.Add(int64(len(p)))
	return len(p), nil
}

func TestRouter_OversizedBodyIsNotBuffered(t *testing.T) {
	const limit = 1024
	router, _, _ := setupRouterWithLimit(t, limit)

	body := &endlessBody{size: 64 << 20}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.LessOrEqual(t, body.read.Load(), int64(limit+1))
}

func TestRouter_OversizedBodyRejected(t *testing.T) {
	const limit = 1024
	router, issuer, _ := setupRouterWithLimit(t, limit)
	token, err := issuer.IssueUser("u1")
	require.NoError(t, err)

	payload := `{"product_ref":"` + strings.Repeat("P", 4*limit) + `","quantity":1}`
	rec := do(t, router, http.MethodPost, "/api/v1/cart/items", token, payload)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "request_too_large", resp.Code)
}

func TestRouter_LargeBodyUnderLimitReachesHandler(t *testing.T) {
	router, issuer, _ := setupRouter(t)
	token, err := issuer.IssueUser("u1")
	require.NoError(t, err)

	// Longer than the logged prefix, so the handler must see the replayed head plus the rest.
	ref := strings.Repeat("P", 3*reqBodyLimit)
	rec := do(t, router, http.MethodPost, "/api/v1/cart/items", token, `{"product_ref":"`+ref+`","quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var c domain.Cart
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&c))
	require.Len(t, c.Lines, 1)
	assert.Equal(t, ref, c.Lines[0].ProductRef)
}
