// In: internal/middleware/recovery.go

package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/iyunix/go-dualotp/internal/domain"
)

func RecoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v\n%s", err, debug.Stack())

				w.Header().Set("Connection", "close")
				writeError(w, http.StatusInternalServerError, domain.KindInternal, "Something went wrong on our end.", nil)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
