package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logging"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Base().Error("failed to encode response", "err", err)
	}
}

// money renders an amount at captured-price precision. Amounts with more
// places are shown exactly.
func money(d decimal.Decimal) string {
	if !d.Equal(d.Round(domain.MoneyPlaces)) {
		return d.String()
	}
	return d.StringFixed(domain.MoneyPlaces)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// decodeBody decodes a JSON request body into v. It writes the error
// response itself and reports whether the handler should continue.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, "request_too_large", fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
	return false
}

// errorMapping is checked in order; the first sentinel matched wins.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrInvalidShipping, http.StatusBadRequest, "invalid_shipping"},
	{domain.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{domain.ErrEmptyCart, http.StatusBadRequest, "empty_cart"},
	{domain.ErrProductNotFound, http.StatusBadRequest, "product_not_found"},
	{domain.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{domain.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{domain.ErrOrderNotCancellable, http.StatusConflict, "order_not_cancellable"},
	{domain.ErrOrderTerminal, http.StatusConflict, "order_terminal"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrConflict, http.StatusConflict, "conflict"},
}

// handleError converts a service error into an HTTP response. Store failures
// get a generic message; the cause is only logged.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		logging.FromCtx(r.Context()).Error("store unavailable", "err", err)
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "service temporarily unavailable, please retry")
		return
	}

	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			resp := ErrorResponse{Error: m.err.Error(), Code: m.code}
			if msg := err.Error(); msg != resp.Error {
				resp.Details = msg
			}
			var se *domain.ShippingError
			if errors.As(err, &se) {
				resp.Details = se.Field + " " + se.Reason
			}
			respondJSON(w, m.status, resp)
			return
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
		return
	}

	logging.FromCtx(r.Context()).Error("unhandled error", "err", err)
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
