package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"
)

type gzipResponseWriter struct {
	http.ResponseWriter
	gz     *gzip.Writer
	headed bool
}

func (g *gzipResponseWriter) WriteHeader(status int) {
	if g.headed {
		return
	}
	g.headed = true
	h := g.ResponseWriter.Header()
	h.Set("Content-Encoding", "gzip")
	// Content-Length do payload original não vale para o corpo comprimido.
	h.Del("Content-Length")
	g.ResponseWriter.WriteHeader(status)
	g.gz = gzip.NewWriter(g.ResponseWriter)
}

func (g *gzipResponseWriter) Write(p []byte) (int, error) {
	if !g.headed {
		g.WriteHeader(http.StatusOK)
	}
	return g.gz.Write(p)
}

func (g *gzipResponseWriter) close() {
	if g.gz != nil {
		_ = g.gz.Close()
	}
}

// Gzip comprime a resposta quando o cliente aceita Accept-Encoding: gzip.
func Gzip(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gw := &gzipResponseWriter{ResponseWriter: w}
		defer gw.close()
		next.ServeHTTP(gw, r)
	})
}
