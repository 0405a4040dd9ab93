package handlers

import (
	"bytes"
	"sort"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	httpctx "permissiondesk/internal/http/ctx"
	"permissiondesk/internal/permission"
	ui "permissiondesk/web"
)

type LayoutData struct {
	Title        string
	ActivePage   string
	PageTemplate string
	Dashboard    permission.DashboardFeed
	Analytics    AnalyticsView
}

// AnalyticsView orders the analytics breakdowns for display.
type AnalyticsView struct {
	Feed      permission.AnalyticsFeed
	Branches  []permission.Counted
	HourBands []permission.Counted
	Weekdays  []permission.Counted
	Months    []permission.Counted
}

func newAnalyticsView(feed permission.AnalyticsFeed) AnalyticsView {
	branches := make([]permission.Counted, 0, len(feed.Branches))
	for label, n := range feed.Branches {
		branches = append(branches, permission.Counted{Label: label, Count: n})
	}
	sort.Slice(branches, func(i, j int) bool {
		if branches[i].Count != branches[j].Count {
			return branches[i].Count > branches[j].Count
		}
		return branches[i].Label < branches[j].Label
	})

	return AnalyticsView{
		Feed:      feed,
		Branches:  branches,
		HourBands: permission.Ordered(feed.HourBands, permission.HourBandLabels()),
		Weekdays:  permission.Ordered(feed.WeekdayTrend, permission.WeekdayNames),
		Months:    permission.Ordered(feed.Monthly, permission.MonthNames),
	}
}

func renderLayout(ctx *fasthttp.RequestCtx, data LayoutData) {
	var buf bytes.Buffer
	if err := ui.Templates().ExecuteTemplate(&buf, "layout", data); err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("render error")
		return
	}
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBody(buf.Bytes())
}

func FormPage() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		renderLayout(ctx, LayoutData{Title: "Request permission", ActivePage: "form", PageTemplate: "form"})
	}
}

func DashboardPage(svc *permission.Service, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		feed, err := svc.Dashboard(httpctx.Context(ctx), dashboardQuery(ctx))
		if err != nil {
			serviceError(ctx, log, err, "failed to load dashboard")
			return
		}
		renderLayout(ctx, LayoutData{Title: "Dashboard", ActivePage: "dashboard", PageTemplate: "dashboard", Dashboard: feed})
	}
}

func AnalyticsPage(svc *permission.Service, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		feed, err := svc.Analytics(httpctx.Context(ctx))
		if err != nil {
			serviceError(ctx, log, err, "failed to load analytics")
			return
		}
		renderLayout(ctx, LayoutData{Title: "Analytics", ActivePage: "analytics", PageTemplate: "analytics", Analytics: newAnalyticsView(feed)})
	}
}
