package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logging"
	"github.com/fjod/go_cart/storefront/internal/metrics"
)

const (
	reqBodyLimit  = 8 * 1024
	respBodyLimit = 8 * 1024
)

type principalKey struct{}

// PrincipalResolver turns an Authorization header into the request's actor.
type PrincipalResolver interface {
	ResolveHeader(header string) (domain.Principal, error)
}

// Authenticate resolves the credential on every request. Requests without a
// valid credential never reach the handler.
func Authenticate(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := resolver.ResolveHeader(r.Header.Get("Authorization"))
			if err != nil {
				logging.FromCtx(r.Context()).Debug("authentication failed", "err", err)
				handleError(w, r, err)
				return
			}
			l := logging.FromCtx(r.Context()).With("actor_kind", p.Kind, "actor_id", p.ID)
			ctx := context.WithValue(r.Context(), principalKey{}, p)
			ctx = logging.WithCtx(ctx, l)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func principalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

// RequestLogger injects a request-scoped logger and logs one line per request
// with redacted, size-capped JSON bodies.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := middleware.GetReqID(r.Context())
			if reqID == "" {
				reqID = r.Header.Get("X-Request-Id")
			}
			if reqID != "" {
				w.Header().Set("X-Request-Id", reqID)
			}

			l := base.With(
				"req_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
			)
			r = r.WithContext(logging.WithCtx(r.Context(), l))

			var reqBody string
			if strings.Contains(r.Header.Get("Content-Type"), "application/json") && r.Body != nil {
				// Only the logged prefix is buffered; the handler reads the rest.
				head, _ := io.ReadAll(io.LimitReader(r.Body, reqBodyLimit+1))
				r.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(head), r.Body), Closer: r.Body}
				reqBody = capped(redactJSON(head), reqBodyLimit)
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			buf := &bytes.Buffer{}
			ww.Tee(&limitedWriter{buf: buf, limit: respBodyLimit})

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []any{
				"status", status,
				"dur_ms", time.Since(start).Milliseconds(),
				"resp_bytes", strconv.Itoa(ww.BytesWritten()),
			}
			if reqBody != "" {
				attrs = append(attrs, "req_body", reqBody)
			}
			if strings.Contains(ww.Header().Get("Content-Type"), "application/json") && buf.Len() > 0 {
				attrs = append(attrs, "resp_body", capped(redactJSON(buf.Bytes()), respBodyLimit))
			}

			if status >= http.StatusInternalServerError {
				l.Error("http_request", attrs...)
				return
			}
			l.Info("http_request", attrs...)
		})
	}
}

// Metrics records request counts and latency by chi route pattern, so ids in
// paths do not explode label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

// MaxBodySize rejects request bodies larger than n bytes.
func MaxBodySize(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

type replayBody struct {
	io.Reader
	io.Closer
}

type limitedWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(b []byte) (int, error) {
	if remain := lw.limit - lw.buf.Len(); remain > 0 {
		if len(b) > remain {
			lw.buf.Write(b[:remain])
		} else {
			lw.buf.Write(b)
		}
	}
	return len(b), nil
}

func capped(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "...truncated..."
	}
	return string(b)
}

var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"authorization": {},
	"token":         {},
	"secret":        {},
	"phone":         {},
}

func redactJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return raw
	}
	var m any
	if err := json.Unmarshal(raw, &m); err != nil {
		return raw // not JSON
	}
	var scrub func(any) any
	scrub = func(x any) any {
		switch v := x.(type) {
		case map[string]any:
			for k, val := range v {
				if _, ok := sensitiveKeys[strings.ToLower(k)]; ok {
					v[k] = "***redacted***"
					continue
				}
				v[k] = scrub(val)
			}
			return v
		case []any:
			for i := range v {
				v[i] = scrub(v[i])
			}
			return v
		default:
			return v
		}
	}
	b, err := json.Marshal(scrub(m))
	if err != nil {
		return raw
	}
	return b
}
