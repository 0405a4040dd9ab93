package handlers

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	httpctx "permissiondesk/internal/http/ctx"
	"permissiondesk/internal/permission"
)

// Submit stores a permission request from the form fields rollno, branch,
// reason and email.
func Submit(svc *permission.Service, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		args := ctx.PostArgs()
		in := permission.SubmitInput{
			RollNumber: strings.TrimSpace(string(args.Peek("rollno"))),
			Branch:     strings.TrimSpace(string(args.Peek("branch"))),
			Reason:     strings.TrimSpace(string(args.Peek("reason"))),
			Email:      strings.TrimSpace(string(args.Peek("email"))),
		}
		row, err := svc.Submit(httpctx.Context(ctx), in)
		if err != nil {
			id, _ := httpctx.RequestIDFromCtx(ctx)
			log.Error().Err(err).Str("request_id", id).Msg("submit failed")
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			jsonResponse(ctx, map[string]any{"success": false, "message": "Error: " + err.Error()})
			return
		}
		jsonResponse(ctx, map[string]any{
			"success": true,
			"message": "Permission request submitted successfully!",
			"id":      row.ID,
		})
	}
}

func DashboardAPI(svc *permission.Service, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		feed, err := svc.Dashboard(httpctx.Context(ctx), dashboardQuery(ctx))
		if err != nil {
			serviceError(ctx, log, err, "failed to load dashboard")
			return
		}
		jsonResponse(ctx, feed)
	}
}

func AnalyticsAPI(svc *permission.Service, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		feed, err := svc.Analytics(httpctx.Context(ctx))
		if err != nil {
			serviceError(ctx, log, err, "failed to load analytics")
			return
		}
		jsonResponse(ctx, feed)
	}
}

// StudentHistory lists every request for the {rollno} path parameter.
func StudentHistory(svc *permission.Service, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		roll, _ := ctx.UserValue("rollno").(string)
		rows, err := svc.History(httpctx.Context(ctx), roll)
		if err != nil {
			serviceError(ctx, log, err, "failed to load history")
			return
		}
		jsonResponse(ctx, map[string]any{"rollno": roll, "history": rows, "total": len(rows)})
	}
}

func ClearData(svc *permission.Service, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		n, err := svc.Clear(httpctx.Context(ctx))
		if err != nil {
			id, _ := httpctx.RequestIDFromCtx(ctx)
			log.Error().Err(err).Str("request_id", id).Msg("clear failed")
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			jsonResponse(ctx, map[string]any{"success": false, "message": "Error: " + err.Error()})
			return
		}
		jsonResponse(ctx, map[string]any{
			"success": true,
			"message": "All permission data cleared",
			"deleted": n,
		})
	}
}

func ExportJSON(svc *permission.Service, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		rows, err := svc.Export(httpctx.Context(ctx))
		if err != nil {
			serviceError(ctx, log, err, "failed to export")
			return
		}
		jsonResponse(ctx, rows)
	}
}

func ExportCSV(svc *permission.Service, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		rows, err := svc.Export(httpctx.Context(ctx))
		if err != nil {
			serviceError(ctx, log, err, "failed to export")
			return
		}
		var buf bytes.Buffer
		if err := permission.WriteCSV(&buf, rows); err != nil {
			serviceError(ctx, log, err, "failed to encode csv")
			return
		}
		ctx.SetContentType("text/csv; charset=utf-8")
		ctx.Response.Header.Set("Content-Disposition", `attachment; filename="permissions.csv"`)
		ctx.SetBody(buf.Bytes())
	}
}

// Healthz pings the store.
func Healthz(svc *permission.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		c, cancel := context.WithTimeout(httpctx.Context(ctx), 2*time.Second)
		defer cancel()
		if err := svc.Ping(c); err != nil {
			errResponse(ctx, fasthttp.StatusServiceUnavailable, "store unavailable")
			return
		}
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	}
}
