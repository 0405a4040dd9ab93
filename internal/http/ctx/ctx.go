package ctx

import (
	"context"

	"github.com/valyala/fasthttp"
)

const RequestIDKey = "requestID"

type requestIDKey struct{}

func SetRequestID(ctx *fasthttp.RequestCtx, id string) {
	ctx.SetUserValue(RequestIDKey, id)
}

func RequestIDFromCtx(ctx *fasthttp.RequestCtx) (string, bool) {
	v := ctx.UserValue(RequestIDKey)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Context returns a standard context for calls made on behalf of the
// request, carrying its request ID.
func Context(ctx *fasthttp.RequestCtx) context.Context {
	c := context.Background()
	if id, ok := RequestIDFromCtx(ctx); ok {
		c = context.WithValue(c, requestIDKey{}, id)
	}
	return c
}

// RequestID returns the request ID carried by c, if any.
func RequestID(c context.Context) string {
	s, _ := c.Value(requestIDKey{}).(string)
	return s
}
