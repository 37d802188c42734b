package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
)

// BearerAuth rejects requests whose bearer token is not accepted by valid.
func BearerAuth(valid func(token string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized(w, "Unauthorized: Missing or invalid authorization token")
				return
			}
			if !valid(token) {
				unauthorized(w, "Unauthorized: Invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
