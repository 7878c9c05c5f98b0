package middleware

import "net/http"

// Vary adds Accept to the Vary header. Only the ops API negotiates content
// (JSON or CBOR); the greeter always answers text/plain and does not use it.
func Vary() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept")
			next.ServeHTTP(w, r)
		})
	}
}
