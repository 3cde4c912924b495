package httpmw

import "net/http"

// MaxBody caps the request body. Handlers see a read error once the limit is
// exceeded and http.MaxBytesReader marks the connection for closing.
func MaxBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
