package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/netra-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/netra-go/internal/config"
	"github.com/0xcro3dile/netra-go/internal/domain/usecases"
	httpserver "github.com/0xcro3dile/netra-go/internal/infrastructure/http"
	"github.com/0xcro3dile/netra-go/internal/infrastructure/metrics"
)

func newServeCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, st.cfg, st.logger)
		},
	}
	cmd.Flags().String("addr", ":8000", "listen address")
	cmd.Flags().String("watch", "", "directory whose scripture files are ingested as they change")
	cmd.Flags().Bool("no-seed", false, "skip seeding an empty knowledge base")
	_ = st.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = st.v.BindPFlag("ingest.watch_dir", cmd.Flags().Lookup("watch"))
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if noSeed, _ := cmd.Flags().GetBool("no-seed"); noSeed {
			st.cfg.Ingest.AutoSeed = false
		}
	}
	return cmd
}

// serve runs the API, plus the auto-seed and the directory watcher when
// configured, until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	rag, provider, err := a.newOrchestrator()
	if err != nil {
		return err
	}
	responses, err := a.newCache(ctx)
	if err != nil {
		return err
	}
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = a.collector
	}

	srv := httpserver.NewServer(httpserver.Config{
		Addr:               cfg.Server.Addr,
		Version:            Version,
		ProviderName:       provider.Name(),
		CORSOrigins:        cfg.Server.CORSOrigins,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       cfg.Server.WriteTimeout,
		ShutdownTimeout:    cfg.Server.ShutdownTimeout,
	}, rag, a.ingest, a.knowledge, responses, collector, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })

	if cfg.Ingest.AutoSeed {
		g.Go(func() error {
			a.autoSeed(gctx)
			return nil
		})
	}

	if dir := cfg.Ingest.WatchDir; dir != "" {
		watcher, err := filewatcher.NewFSNotifyWatcher(nil, logger)
		if err != nil {
			return err
		}
		events, err := watcher.Watch(gctx, dir)
		if err != nil {
			watcher.Stop()
			return err
		}
		dirSync := usecases.NewDirectorySync(a.ingest, a.workers, cfg.Ingest.Debounce, logger)
		g.Go(func() error {
			defer watcher.Stop()
			return dirSync.Run(gctx, events)
		})
	}

	return g.Wait()
}

// autoSeed fills an empty knowledge base. Failures are logged; the server
// keeps running without the bundled corpus.
func (a *app) autoSeed(ctx context.Context) {
	seeder, err := a.newSeeder()
	if err != nil {
		a.logger.Warn("auto-seed skipped", zap.Error(err))
		return
	}
	report, err := seeder.SeedIfEmpty(ctx)
	if err != nil {
		a.logger.Warn("auto-seed failed", zap.Error(err))
		return
	}
	if !report.Skipped {
		a.logger.Info("knowledge base seeded", zap.Int("files", report.Files), zap.Int("chunks", report.Chunks))
	}
}
