package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	apperror "sitetrack/internal/errors"
	"sitetrack/internal/pkg/logger"
)

// Recoverer anexa um hub do Sentry a cada requisição e converte panics em 500.
// O ResponseWriter original segue intacto, então http.Flusher continua disponível para o SSE.
func Recoverer(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hub := sentry.GetHubFromContext(r.Context())
			if hub == nil {
				hub = sentry.CurrentHub().Clone()
			}
			hub.Scope().SetRequest(r)
			ctx := sentry.SetHubOnContext(r.Context(), hub)

			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					hub.RecoverWithContext(ctx, rec)
					hub.Flush(2 * time.Second)
					log.Error("Panic ao processar requisição", fmt.Errorf("%v [%s %s]", rec, r.Method, r.URL.Path))
					WriteError(w, apperror.NewInternalError("erro inesperado", nil))
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
