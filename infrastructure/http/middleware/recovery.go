package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/arw/arw-api/domain/apperror"
	"github.com/arw/arw-api/infrastructure/http/response"
	"github.com/arw/arw-api/infrastructure/service/logger"
)

// Recovery turns a handler panic into a 500 error envelope.
func Recovery(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					log.Error(r.Context(), "PANIC recovered", fmt.Errorf("%v", p), map[string]interface{}{
						"path":  r.URL.Path,
						"stack": string(debug.Stack()),
					})
					response.AppError(w, r, apperror.ErrInternalServerError("", nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
