package handlers

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	httpctx "permissiondesk/internal/http/ctx"
	"permissiondesk/internal/permission"
)

func jsonResponse(ctx *fasthttp.RequestCtx, data any) {
	ctx.SetContentType("application/json")
	body, err := json.Marshal(data)
	if err != nil {
		errResponse(ctx, fasthttp.StatusInternalServerError, "encode error")
		return
	}
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetBodyString(msg)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errJSON(ctx *fasthttp.RequestCtx, status int, code, msg string) {
	ctx.SetStatusCode(status)
	jsonResponse(ctx, map[string]apiError{"error": {Code: code, Message: msg}})
}

// serviceError answers a failed service call: malformed filters are the
// caller's fault, anything else is logged and reported as internal.
func serviceError(ctx *fasthttp.RequestCtx, log zerolog.Logger, err error, what string) {
	if errors.Is(err, permission.ErrInvalidFilter) {
		errJSON(ctx, fasthttp.StatusBadRequest, "invalid_filter", err.Error())
		return
	}
	id, _ := httpctx.RequestIDFromCtx(ctx)
	log.Error().Err(err).Str("request_id", id).Msg(what)
	errJSON(ctx, fasthttp.StatusInternalServerError, "internal", what)
}

func queryString(ctx *fasthttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func dashboardQuery(ctx *fasthttp.RequestCtx) permission.DashboardQuery {
	return permission.DashboardQuery{
		RollNumber: queryString(ctx, "rollno"),
		Date:       queryString(ctx, "date"),
		From:       queryString(ctx, "from"),
		To:         queryString(ctx, "to"),
	}
}
