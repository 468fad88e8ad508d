package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/internal/server/response"
)

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Enabled    bool
	APIKey     string
	HeaderName string
	// QueryParam is consulted when no header carries a key. Browsers
	// cannot set headers on websocket handshakes.
	QueryParam  string
	PublicPaths []string
}

// DefaultAuthConfig returns default authentication configuration for
// routes mounted under prefix.
func DefaultAuthConfig(prefix string) AuthConfig {
	return AuthConfig{
		Enabled:     false,
		APIKey:      os.Getenv("LEAFMAP_API_KEY"),
		HeaderName:  "X-API-Key",
		QueryParam:  "api_key",
		PublicPaths: []string{"/health", prefix + "/health", prefix + "/ready"},
	}
}

// Auth middleware validates API keys for protected endpoints.
func Auth(config AuthConfig, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled || isPublicPath(r.URL.Path, config.PublicPaths) {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := extractAPIKey(r, config)
			if !validKey(apiKey, config.APIKey) {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Bool("key_provided", apiKey != "").
					Msg("Authentication failed")
				response.Unauthorized(w, "Invalid or missing API key",
					"Provide a valid API key in the "+config.HeaderName+" header")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func validKey(got, want string) bool {
	if got == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func isPublicPath(path string, publicPaths []string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// extractAPIKey looks at the configured header, then Authorization
// (raw or Bearer), then the query parameter.
func extractAPIKey(r *http.Request, config AuthConfig) string {
	if key := r.Header.Get(config.HeaderName); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if config.QueryParam != "" {
		return r.URL.Query().Get(config.QueryParam)
	}
	return ""
}
