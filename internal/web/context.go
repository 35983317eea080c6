package web

import (
	"context"
	"net/http"

	"github.com/amengaji/Keel/internal/core"
)

// withClient adds IP and User-Agent to context for the import batch history.
func withClient(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr // Already processed by TrustedRealIP
	return core.ContextWithClient(ctx, ip, r.UserAgent())
}
