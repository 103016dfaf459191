package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type htmxContextKey struct{}

// HTMXInfo captures request metadata from HX-* headers.
type HTMXInfo struct {
	IsHTMX         bool
	IsBoosted      bool
	CurrentURL     string
	Target         string
	TriggerID      string
	TriggerName    string
	HistoryRestore bool
}

// HTMX returns middleware that inspects HX-* headers and annotates the context.
func HTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := HTMXInfo{
				IsHTMX:         strings.EqualFold(r.Header.Get("HX-Request"), "true"),
				IsBoosted:      strings.EqualFold(r.Header.Get("HX-Boosted"), "true"),
				CurrentURL:     r.Header.Get("HX-Current-URL"),
				Target:         r.Header.Get("HX-Target"),
				TriggerID:      r.Header.Get("HX-Trigger"),
				TriggerName:    r.Header.Get("HX-Trigger-Name"),
				HistoryRestore: strings.EqualFold(r.Header.Get("HX-History-Restore-Request"), "true"),
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), htmxContextKey{}, info)))
		})
	}
}

// HTMXInfoFromContext retrieves HTMX metadata; returns zero value if absent.
func HTMXInfoFromContext(ctx context.Context) HTMXInfo {
	info, _ := ctx.Value(htmxContextKey{}).(HTMXInfo)
	return info
}

// IsHTMXRequest returns true when the current request was initiated by htmx (and is not a
// history restore, which expects a full page).
func IsHTMXRequest(ctx context.Context) bool {
	info := HTMXInfoFromContext(ctx)
	return info.IsHTMX && !info.HistoryRestore
}

// RequireHTMX returns 404 for direct navigation to fragment routes.
func RequireHTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsHTMXRequest(r.Context()) {
				http.NotFound(w, r)
				return
			}
			w.Header().Add("Vary", "HX-Request")
			next.ServeHTTP(w, r)
		})
	}
}

// Toast tones understood by the client toast container.
const (
	ToneSuccess = "success"
	ToneError   = "error"
	ToneInfo    = "info"
	ToneWarning = "warning"
)

// TriggerToast asks the client to show a toast via the HX-Trigger response header. It must be
// called before the response is written.
func TriggerToast(w http.ResponseWriter, message, tone string) {
	if message == "" {
		return
	}
	if tone == "" {
		tone = ToneInfo
	}
	payload, err := json.Marshal(map[string]any{
		"toast": map[string]string{"message": message, "tone": tone},
	})
	if err != nil {
		return
	}
	w.Header().Set("HX-Trigger", string(payload))
}

// ReplaceURL updates the browser URL without adding a history entry.
func ReplaceURL(w http.ResponseWriter, target string) {
	if target != "" {
		w.Header().Set("HX-Replace-Url", target)
	}
}

// Redirect sends htmx clients an HX-Redirect and everyone else a 303.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	if IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
