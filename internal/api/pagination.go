package api

import (
	"net/http"
	"strconv"
)

// ParseLimitOffset lê limit/offset da query string. limit padrão 20, teto 100;
// valores inválidos ou negativos caem no padrão.
func ParseLimitOffset(r *http.Request) (limit, offset int) {
	limit, offset = 20, 0
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = n
	}
	if limit > 100 {
		limit = 100
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		offset = n
	}
	return limit, offset
}
