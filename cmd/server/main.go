package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"armsdash/internal/config"
	"armsdash/internal/engine"
	"armsdash/internal/logging"
	"armsdash/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.WithError(err).Error("armsdash failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "armsdash",
		Short:         "Dashboard of SIPRI arms transfers to Ukraine",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgPath)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config.yaml)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load the Parquet inputs and verify shape, partition and totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd.Context(), cfgPath, cmd.OutOrStdout())
		},
	})
	return root
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.Logger.Level, cfg.Logger.Format, os.Stderr)
	return cfg, nil
}

func runServe(ctx context.Context, cfgPath string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The API is "live" immediately and answers 503 until the load finishes.
	srv := server.New(cfg)

	go func() {
		if err := srv.Load(ctx); err != nil {
			log.WithError(err).Error("dataset load failed")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("address", cfg.Server.Address).Info("server ready (data loading in background)")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func runCheck(ctx context.Context, cfgPath string, out io.Writer) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	ds, err := engine.Load(ctx, cfg.Data.Transfers, cfg.Data.Ranks)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, s := range []struct {
		name string
		cols []string
		rows int
	}{
		{"trade register", ds.Transfers.Columns, ds.Transfers.Len()},
		{"importer rank", ds.Ranks.Columns, len(ds.Ranks.Rows)},
	} {
		fmt.Fprintf(w, "%s\t%d rows\t%d columns\n", s.name, s.rows, len(s.cols))
	}

	before, after := ds.Transfers.Partition(engine.InvasionYear)
	fmt.Fprintf(w, "before %d\t%d rows\t\n", engine.InvasionYear, len(before))
	fmt.Fprintf(w, "from %d\t%d rows\t\n", engine.InvasionYear, len(after))

	failed := 0
	for _, r := range ds.Reconcile(cfg.Reconcile.Tolerance) {
		status := "ok"
		if !r.OK {
			status = "MISMATCH"
			failed++
		}
		fmt.Fprintf(w, "period %s\tcomputed %.2f\texpected %.2f\t%s\n", r.Period, r.Computed, r.Expected, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d period totals do not match the rank summary", failed)
	}
	return nil
}
