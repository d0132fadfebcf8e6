package middleware

import (
	"log"
	"net/http"
	"runtime/debug"
)

// Recover transforma panic em 500 com JSON estável. O stack fica só no log do
// servidor; a resposta leva apenas o request_id para correlação.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			rid := r.Header.Get("X-Request-ID")
			log.Printf("[panic] request_id=%s %s %s: %v\n%s", rid, r.Method, r.URL.Path, p, debug.Stack())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal","request_id":"` + rid + `"}`))
		}()
		next.ServeHTTP(w, r)
	})
}
