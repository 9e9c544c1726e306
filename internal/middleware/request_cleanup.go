package middleware

import (
	"io"
	"net/http"
)

// bodies bigger than this are not worth draining, the conn is dropped instead
const maxDrainBytes = 256 << 10

// DrainAndCloseRequest reads what the handler left of the request body and closes it,
// so the connection can be reused (image uploads rejected early leave most of the body unread).
func DrainAndCloseRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if r.Body == nil || r.Body == http.NoBody {
				return
			}
			_, _ = io.CopyN(io.Discard, r.Body, maxDrainBytes)
			_ = r.Body.Close()
		})
	}
}
