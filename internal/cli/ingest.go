package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newIngestCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest URL|FILE...",
		Short: "Add web pages or local scripture files to the knowledge base",
		Long: "Fetches each http(s) URL, or reads each local file, and stores its chunks.\n" +
			"Sources are processed concurrently; one failure does not stop the others.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), st.cfg, st.logger)
			if err != nil {
				return err
			}
			defer a.close()
			return a.ingestAll(cmd.Context(), cmd, args)
		},
	}
}

func (a *app) ingestAll(ctx context.Context, cmd *cobra.Command, targets []string) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	tasks := make([]func(context.Context) error, 0, len(targets))
	for _, target := range targets {
		tasks = append(tasks, func(ctx context.Context) error {
			n, err := a.ingestOne(ctx, target)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.logger.Warn("ingest failed", zap.String("source", target), zap.Error(err))
				errs = append(errs, fmt.Errorf("%s: %w", target, err))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Learned %d chunks from %s\n", n, target)
			return nil
		})
	}

	if err := a.workers.Run(ctx, tasks...); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func (a *app) ingestOne(ctx context.Context, target string) (int, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		src, err := a.ingest.Learn(ctx, target)
		return src.ChunkCount, err
	}
	return a.ingest.IngestFile(ctx, target, filepath.Base(target))
}
