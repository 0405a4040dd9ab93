package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fasthttp/router"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"permissiondesk/internal/events"
	"permissiondesk/internal/http/handlers"
	appmw "permissiondesk/internal/http/middleware"
	"permissiondesk/internal/metrics"
	"permissiondesk/internal/permission"
	"permissiondesk/internal/telemetry"
	ui "permissiondesk/web"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and background workers (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())
	log := a.log

	shutdownTracing := telemetry.Setup(ctx, serviceName, a.cfg.OTLPEndpoint, a.cfg.OTLPInsecure, log)
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(c); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	m := metrics.New()
	opts := permission.Options{Observer: m}
	if pub := events.New(a.cfg.KafkaBrokers, a.cfg.KafkaTopic, a.cfg.Location(), log); pub != nil {
		opts.Publisher = pub
		defer func() {
			if err := pub.Close(); err != nil {
				log.Warn().Err(err).Msg("close kafka writer")
			}
		}()
		log.Info().Strs("brokers", a.cfg.KafkaBrokers).Str("topic", a.cfg.KafkaTopic).Msg("publishing submitted events")
	}
	svc := a.service(opts)

	svc.StartRetentionWorker(ctx, a.cfg.RetentionDays)
	svc.StartSnapshotWorker(ctx, a.cfg.SnapshotInterval)

	r := router.New()
	r.SaveMatchedRoutePath = true

	r.GET("/healthz", handlers.Healthz(svc))
	r.GET("/metrics", handlers.MetricsHandler(m.Gatherer()))
	r.ServeFS("/static/{filepath:*}", ui.StaticFS())

	r.GET("/", handlers.FormPage())
	r.POST("/submit", handlers.Submit(svc, log))
	r.GET("/dashboard", handlers.DashboardPage(svc, log))
	r.GET("/analytics", handlers.AnalyticsPage(svc, log))

	r.GET("/api/dashboard", handlers.DashboardAPI(svc, log))
	r.GET("/api/analytics", handlers.AnalyticsAPI(svc, log))
	r.GET("/api/student-history/{rollno}", handlers.StudentHistory(svc, log))
	r.GET("/export", handlers.ExportJSON(svc, log))
	r.GET("/export.csv", handlers.ExportCSV(svc, log))
	r.POST("/clear-data", handlers.ClearData(svc, log))

	// Global middleware chain: request id, then request logger, then router
	handler := appmw.RequestID(appmw.RequestLogger(log, m)(r.Handler))

	server := &fasthttp.Server{
		Handler:      handler,
		Name:         serviceName,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", a.cfg.ListenAddr).Str("store", a.cfg.StoreDriver).Msg("permissiondesk listening")
		errCh <- server.ListenAndServe(a.cfg.ListenAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
