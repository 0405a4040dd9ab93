package middleware

import (
	"bytes"
	"testing"
	"time"

	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	httpctx "permissiondesk/internal/http/ctx"
)

type recordedRequest struct {
	route  string
	method string
	status int
}

type fakeObserver struct {
	seen []recordedRequest
}

func (f *fakeObserver) ObserveRequest(route, method string, status int, _ time.Duration) {
	f.seen = append(f.seen, recordedRequest{route: route, method: method, status: status})
}

func TestRequestIDGenerated(t *testing.T) {
	var got string
	h := RequestID(func(ctx *fasthttp.RequestCtx) {
		got, _ = httpctx.RequestIDFromCtx(ctx)
	})

	var rc fasthttp.RequestCtx
	h(&rc)

	require.NotEmpty(t, got)
	assert.Equal(t, got, string(rc.Response.Header.Peek(RequestIDHeader)))
	assert.Equal(t, got, httpctx.RequestID(httpctx.Context(&rc)))
}

func TestRequestIDReused(t *testing.T) {
	h := RequestID(func(*fasthttp.RequestCtx) {})

	var rc fasthttp.RequestCtx
	rc.Request.Header.Set(RequestIDHeader, "abc-123")
	h(&rc)

	assert.Equal(t, "abc-123", string(rc.Response.Header.Peek(RequestIDHeader)))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	obs := &fakeObserver{}

	r := router.New()
	r.SaveMatchedRoutePath = true
	r.GET("/api/student-history/{rollno}", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
	})
	h := RequestID(RequestLogger(log, obs)(r.Handler))

	var rc fasthttp.RequestCtx
	rc.Request.Header.SetMethod(fasthttp.MethodGet)
	rc.Request.SetRequestURI("/api/student-history/21CS001")
	h(&rc)

	require.Len(t, obs.seen, 1)
	assert.Equal(t, recordedRequest{route: "/api/student-history/{rollno}", method: "GET", status: 200}, obs.seen[0])
	assert.Contains(t, buf.String(), `"path":"/api/student-history/21CS001"`)
	assert.Contains(t, buf.String(), `"request_id":"`)
}

func TestRequestLoggerUnmatchedRoute(t *testing.T) {
	obs := &fakeObserver{}
	h := RequestLogger(zerolog.Nop(), obs)(func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	})

	var rc fasthttp.RequestCtx
	rc.Request.SetRequestURI("/nope")
	h(&rc)

	require.Len(t, obs.seen, 1)
	assert.Equal(t, "unmatched", obs.seen[0].route)
	assert.Equal(t, 404, obs.seen[0].status)
}
