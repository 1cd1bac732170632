package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"playout/internal/api"
	"playout/internal/config"
	"playout/internal/logx"
	"playout/internal/onair"
	"playout/internal/store/pgstore"
)

var (
	serveAddr     string
	serveLogLevel string
	serveMigrate  bool
	servePoll     bool
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the on-air status poller",
		RunE:  runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "log level: debug, info, warn or error")
	cmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply database migrations before starting")
	cmd.Flags().BoolVar(&servePoll, "poll", true, "advance item statuses with the wall clock")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logx.NewJSON(cmd.ErrOrStderr(), serveLogLevel)

	if serveMigrate {
		_, cfg, err := loadProjectConfig()
		if err != nil {
			return err
		}
		if cfg.Store.Backend == config.BackendPostgres {
			if err := pgstore.MigrateUp(cfg.Store.DSN); err != nil {
				return err
			}
			logger.Info("migrations applied")
		}
	}

	rt, err := openRuntime(ctx, runtimeOptions{logger: logger})
	if err != nil {
		return err
	}
	defer rt.Close()

	addr := rt.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	server := api.NewServer(rt.svc, api.Options{
		Media:  rt.store.Media(),
		Tracer: rt.resolver,
		Logger: logger,
		Health: rt.Ping,
	})
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", addr).Info("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	if servePoll {
		poller := onair.New(rt.svc, onair.Options{
			Interval: rt.cfg.Server.PollInterval,
			Location: rt.location,
			Logger:   logger.WithField("component", "onair"),
		})
		g.Go(func() error {
			return poller.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server stopped")
		return err
	}
	logger.WithFields(logrus.Fields{"addr": addr}).Info("server stopped")
	return nil
}
