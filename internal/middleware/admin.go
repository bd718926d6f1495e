package middleware

import (
	"net/http"
	"strings"

	"github.com/folio-dev/folio/internal/utils"
)

// AdminAuth gates a subrouter behind the signed admin token. The token rides
// either the emailed link's query param or an Authorization bearer header.
func AdminAuth(authorize func(tokenStr string) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.URL.Query().Get("token")
			if token == "" {
				token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}

			if err := authorize(token); err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
