package middleware

import (
	"context"
	"net/http"
	"strings"
)

type requestInfoKey struct{}

type environmentKey struct{}

const defaultEnvironment = "Development"

// RequestInfo holds lightweight request metadata exposed to templates.
type RequestInfo struct {
	Path     string
	RawQuery string
	BasePath string
	Method   string
}

// RequestInfoMiddleware annotates the context with the current request path and base path.
func RequestInfoMiddleware(basePath string) func(http.Handler) http.Handler {
	base := normaliseBase(basePath)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := &RequestInfo{
				Path:     r.URL.Path,
				RawQuery: r.URL.RawQuery,
				Method:   r.Method,
				BasePath: base,
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))
		})
	}
}

// RequestInfoFromContext returns the request metadata stored by RequestInfoMiddleware.
func RequestInfoFromContext(ctx context.Context) (*RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(*RequestInfo)
	return info, ok && info != nil
}

// RequestPathFromContext returns the request path or empty string when unavailable.
func RequestPathFromContext(ctx context.Context) string {
	if info, ok := RequestInfoFromContext(ctx); ok {
		return info.Path
	}
	return ""
}

// BasePathFromContext returns the resolved admin base path or "/" when unavailable.
func BasePathFromContext(ctx context.Context) string {
	if info, ok := RequestInfoFromContext(ctx); ok && info.BasePath != "" {
		return info.BasePath
	}
	return "/"
}

// Environment attaches the deployment label (Development, Staging, Production) so the layout
// can render an environment badge. Empty values mean Development.
func Environment(value string) func(http.Handler) http.Handler {
	label := strings.TrimSpace(value)
	if label == "" {
		label = defaultEnvironment
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), environmentKey{}, label)))
		})
	}
}

// EnvironmentFromContext returns the environment label for the request.
func EnvironmentFromContext(ctx context.Context) string {
	if ctx != nil {
		if value, ok := ctx.Value(environmentKey{}).(string); ok && value != "" {
			return value
		}
	}
	return defaultEnvironment
}

func normaliseBase(base string) string {
	base = strings.TrimSpace(base)
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	if trimmed := strings.TrimRight(base, "/"); trimmed != "" {
		return trimmed
	}
	return "/"
}
