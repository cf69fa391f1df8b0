package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/listings/internal/core"
)

// requestContext tags the request context with the client address so
// import logs can name the uploader. RemoteAddr has already been rewritten
// by TrustedRealIP when the request came through a trusted proxy.
func requestContext(r *http.Request) context.Context {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return core.ContextWithClientIP(r.Context(), ip)
}
