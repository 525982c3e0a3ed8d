package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const maxPageSize = 100

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// pagination reads ?page= (1-based) and ?limit=, capping limit at maxPageSize.
func pagination(r *http.Request, defaultLimit int) (limit, offset, page int) {
	query := r.URL.Query()
	limit = min(parseInt(query.Get("limit"), defaultLimit), maxPageSize)
	page = parseInt(query.Get("page"), 1)
	return limit, (page - 1) * limit, page
}
