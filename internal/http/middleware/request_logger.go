package middleware

import (
	"time"

	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	httpctx "permissiondesk/internal/http/ctx"
)

// RequestObserver records served requests, typically as metrics.
type RequestObserver interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
}

// RequestLogger logs method, path, status and duration for every request and
// reports it to obs. obs may be nil. Scrapes of /metrics and /healthz are
// logged at debug level.
func RequestLogger(log zerolog.Logger, obs RequestObserver) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			elapsed := time.Since(start)

			path := string(ctx.Path())
			status := ctx.Response.StatusCode()
			method := string(ctx.Method())

			if obs != nil {
				obs.ObserveRequest(routeOf(ctx), method, status, elapsed)
			}

			ev := log.Info()
			switch {
			case status >= 500:
				ev = log.Error()
			case path == "/metrics" || path == "/healthz":
				ev = log.Debug()
			}
			id, _ := httpctx.RequestIDFromCtx(ctx)
			ev.Str("method", method).
				Str("path", path).
				Int("status", status).
				Dur("duration", elapsed).
				Str("remote_ip", ctx.RemoteIP().String()).
				Str("request_id", id).
				Msg("request")
		}
	}
}

// routeOf returns the matched route pattern so path parameters do not
// explode label cardinality. Requires router.SaveMatchedRoutePath.
func routeOf(ctx *fasthttp.RequestCtx) string {
	if r, ok := ctx.UserValue(router.MatchedRoutePathParam).(string); ok && r != "" {
		return r
	}
	return "unmatched"
}
