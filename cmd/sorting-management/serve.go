package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/perysek/sorting-management/internal/http"
	"github.com/perysek/sorting-management/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ensureSchema(ctx); err != nil {
			return err
		}

		router := httpapi.NewRouter(log)
		router.RegisterReportRoutes(httpapi.NewReportsHandler(a.reports, log))
		router.RegisterDiscrepancyRoutes(httpapi.NewDiscrepancyHandler(a.lookup, log))
		router.RegisterSyncRoutes(httpapi.NewSyncHandler(a.enrichment, log))
		router.RegisterHealthRoutes(a.localDB.PingContext)

		srv := service.NewServer(cfg.HTTP.Addr, httpapi.WithRequestLogging(router, log), log)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		var serveErr error
		select {
		case sig := <-sigCh:
			log.Info("Shutdown signal received", zap.String("signal", sig.String()))
		case serveErr = <-errCh:
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Stop(shutdownCtx)
		return serveErr
	},
}
