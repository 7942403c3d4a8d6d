package middleware

import (
	"net/http"

	appctx "github.com/welldanyogia/portfolio-contact/internal/context"
)

// ClientIP resolves the caller's address once per request and stores it in
// the context for the logger and the submission limiter
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := appctx.WithClientIP(r.Context(), appctx.ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
