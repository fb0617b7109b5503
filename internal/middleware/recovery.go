package middleware

import (
	"net/http"
	"runtime/debug"

	"collection-backend/internal/logger"
	"collection-backend/pkg/utils"
)

func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log := logger.FromContext(r.Context())
				log.Error().
					Interface("panic", err).
					Str("stack", string(debug.Stack())).
					Str("path", r.URL.Path).
					Msg("panic recovered")

				utils.ErrorJSON(w, http.StatusInternalServerError, "internal", "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
