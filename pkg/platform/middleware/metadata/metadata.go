// Package metadata resolves the caller address and client software for rate
// limiting and audit.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"civic/pkg/requestcontext"
)

// ClientMetadata stores the resolved client IP and user agent summary in the
// request context.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientIP(r.Context(), ClientIPFromRequest(r))
		ctx = requestcontext.WithUserAgent(ctx, DescribeUserAgent(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// maxUserAgent bounds what is copied into audit rows.
const maxUserAgent = 200

// DescribeUserAgent reduces a raw User-Agent header to browser, version and
// OS. Bots keep their name; unparseable values are truncated as-is.
func DescribeUserAgent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	var out string
	switch {
	case ua.Bot():
		out = "bot " + name
	case name == "":
		out = raw
	default:
		out = strings.TrimSpace(name + " " + version)
		if os := ua.OS(); os != "" {
			out += " (" + os + ")"
		}
		if ua.Mobile() {
			out += " mobile"
		}
	}
	if len(out) > maxUserAgent {
		out = out[:maxUserAgent]
	}
	return out
}

// ClientIPFromRequest prefers the first X-Forwarded-For hop, then X-Real-IP,
// then the connection address.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
