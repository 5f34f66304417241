package web

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// logRequests logs every request once it has been served
func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// requireAdmin only lets requests through that carry the admin token as a
// bearer token. Without a configured token every admin request is refused.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			http.Error(w, "Forbidden: admin access is disabled", http.StatusForbidden)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			http.Error(w, "Unauthorized: bearer token required", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			s.logger.Warn("rejected admin request", "path", r.URL.Path, "remote", r.RemoteAddr)
			http.Error(w, "Forbidden: invalid token", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}
