package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/bomquote/internal/core"
)

// WithRequestMetadata adds IP and User-Agent to context for transition logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClient(ctx, clientIP(r), r.UserAgent())
}

// clientIP returns the host part of RemoteAddr, which TrustedRealIP has
// already replaced when the request came through a trusted proxy.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
