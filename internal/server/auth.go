package server

import (
	"net/http"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/logger"
)

// exemptPaths are routes that bypass the key check.
var exemptPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// APIKeyMiddleware validates the key query parameter. An empty apiKey
// disables the check.
func APIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			key := r.URL.Query().Get("key")
			if key == "" {
				writeError(w, http.StatusUnauthorized, "缺少必要参数key")
				return
			}
			if key != apiKey {
				logger.Warn("invalid api key", "method", r.Method, "path", r.URL.Path, "ip", r.RemoteAddr)
				writeError(w, http.StatusForbidden, "密钥验证失败")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
