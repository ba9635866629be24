package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/greenloop-app/greenloop/internal/api"
	"github.com/greenloop-app/greenloop/internal/app/ledger"
	"github.com/greenloop-app/greenloop/internal/app/rewards"
	"github.com/greenloop-app/greenloop/internal/app/tasks"
	"github.com/greenloop-app/greenloop/internal/daemon"
	"github.com/greenloop-app/greenloop/internal/infra/evidence"
	"github.com/greenloop-app/greenloop/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the GreenLoop API server",
	Long:  `Start the HTTP API server: ledger, rewards, tasks, evidence, live feed.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	ev, err := evidence.Open(filepath.Join(cfg.Storage.Dir, "evidence"))
	if err != nil {
		return fmt.Errorf("open evidence store: %w", err)
	}
	defer ev.Close()

	ledgerCfg := ledger.Config{
		WelcomeGrant: cfg.Ledger.WelcomeGrant,
		SelfieReward: cfg.Ledger.SelfieReward,
		PendingTTL:   cfg.Ledger.ParsedPendingTTL(),
	}
	lg := ledger.New(ledgerCfg, db)
	rw := rewards.New(db, lg)
	ts := tasks.New(db, lg)

	server := api.NewServer(db, lg, rw, ts, ev)
	server.SetTokenTTL(cfg.Auth.ParsedTokenTTL())
	if cfg.API.Metrics {
		server.EnableMetrics()
	}
	if cfg.RateLimit.Enabled {
		server.SetRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	lg.SetBroadcaster(server.Hub())

	// Periodic sweeps: pending-transaction expiry and token cleanup.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go runSweeps(sweepCtx, lg, db)

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[serve] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("[serve] received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runSweeps runs background maintenance until ctx is cancelled.
func runSweeps(ctx context.Context, lg *ledger.Service, db *sqlite.DB) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			if _, err := lg.ExpirePending(ctx, now); err != nil {
				log.Printf("[serve] expiry sweep: %v", err)
			}
			if _, err := db.DeleteExpiredTokens(now); err != nil {
				log.Printf("[serve] token sweep: %v", err)
			}
		}
	}
}

// loadConfig resolves the --config flag (falling back to the default path).
func loadConfig(cmd *cobra.Command) (daemon.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = daemon.DefaultPath()
	}
	return daemon.Load(path)
}
