package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func taskGIDFromRequest(r *http.Request) string {
	return chi.URLParam(r, "taskGID")
}

func defaultIntQueryParams(r *http.Request, key string, def int) int {
	val, ok := r.URL.Query().Get(key), r.URL.Query().Has(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return i
}
