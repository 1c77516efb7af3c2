package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abimbolaoige/KFM-Counsel-Chat/api"
	"github.com/abimbolaoige/KFM-Counsel-Chat/app"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if cfg.Server.Mode != "" {
				gin.SetMode(cfg.Server.Mode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stores, err := app.OpenStores(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := stores.Close(); err != nil {
					log.Warn("closing stores", zap.Error(err))
				}
			}()

			svc, janitor := app.NewServices(cfg, stores, log)
			handler := api.NewAPIHandler(svc, log)
			srv := &http.Server{
				Addr:              net.JoinHostPort("", cfg.Server.Port),
				Handler:           api.NewRouter(handler, log),
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext:       func(net.Listener) context.Context { return ctx },
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("starting server", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				return janitor.Run(gctx, cfg.Session.SweepInterval)
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}
