package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/events-aggregator/api/responses"
	"github.com/angelmondragon/events-aggregator/internal/inbox"
	pkgerrors "github.com/angelmondragon/events-aggregator/pkg/errors"
	"github.com/angelmondragon/events-aggregator/pkg/logger"
)

const idempotencyKeyHeader = "Idempotency-Key"

type idempotencyKeyCtx struct{}

// IdempotencyKey validates the Idempotency-Key header when present and makes
// it available to handlers. Requests without the header pass through.
func IdempotencyKey(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, present := r.Header[http.CanonicalHeaderKey(idempotencyKeyHeader)]
			if !present {
				next.ServeHTTP(w, r)
				return
			}

			key := ""
			if len(raw) > 0 {
				key = strings.TrimSpace(raw[0])
			}
			if err := inbox.ValidateKey(key); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid Idempotency-Key header"))
				return
			}

			ctx := context.WithValue(r.Context(), idempotencyKeyCtx{}, key)
			if logg != nil {
				ctx = logg.WithField(ctx, "idempotency_key", key)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdempotencyKeyFromContext returns the header key accepted by IdempotencyKey.
func IdempotencyKeyFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(idempotencyKeyCtx{}).(string); ok {
		return v
	}
	return ""
}
