// Package greeter serves the greeting as an HTTP Cloud Function.
package greeter

import (
	"net/http"
	"os"
	"strconv"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
)

const defaultGreeting = "Hello from ArgoCD!"

func init() {
	functions.HTTP("Greeter", newHandler(greetingFromEnv()))
}

// greetingFromEnv returns GREETING if set, even when empty.
func greetingFromEnv() string {
	if v, ok := os.LookupEnv("GREETING"); ok {
		return v
	}
	return defaultGreeting
}

func newHandler(greeting string) http.HandlerFunc {
	body := []byte(greeting)
	length := strconv.Itoa(len(body))
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
		default:
			w.Header().Set("Allow", "GET, HEAD")
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusMethodNotAllowed)
			_, _ = w.Write([]byte("method not allowed\n"))
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Length", length)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	}
}
