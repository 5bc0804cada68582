package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitewerk/sitesync/internal/daemon"
	"github.com/sitewerk/sitesync/internal/store"
	"github.com/sitewerk/sitesync/internal/syncer"
	"github.com/sitewerk/sitesync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Reconcile local records with the remote archive",
	Long: `Reconcile the local database with the configured remote archive.

A sync cycle pulls every remote record, merges record by record (the
copy with the newer lastUpdated wins, ties keep the local copy) and
pushes the merged result back. Cycles are idempotent and safe to
interrupt and retry.`,
}

var syncRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full sync cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sy, cleanup, err := connectSyncer(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		start := time.Now()
		stats, err := sy.RunSyncCycle(ctx)
		if err != nil {
			return fmt.Errorf("sync cycle: %w", err)
		}

		fmt.Printf("%s Sync complete in %v\n", ui.RenderSuccess("✓"), time.Since(start).Round(time.Millisecond))
		fmt.Printf("   Pulled:  %d report(s), %d failed\n", stats.PulledReports, stats.PullFailed)
		fmt.Printf("   Adopted: %d report(s), %d module(s)\n", stats.ReportsAdopted, stats.ModulesAdopted)
		fmt.Printf("   Pushed:  %d blob(s), %d failed\n", stats.PushedBlobs, stats.PushFailed)
		if stats.PullFailed > 0 || stats.PushFailed > 0 {
			fmt.Printf("%s Some records were skipped; they will be retried next cycle\n", ui.RenderWarn("⚠"))
		}
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show archive configuration and local record counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(cfg.StorePath)
		if err != nil {
			return err
		}
		defer st.Close()

		reports, err := st.ReportCountContext(ctx)
		if err != nil {
			return err
		}
		modules, err := st.ModuleCountContext(ctx)
		if err != nil {
			return err
		}

		fmt.Println(ui.RenderHeader("sitesync status"))
		fmt.Printf("   Store:    %s (%d report(s), %d module(s))\n", cfg.StorePath, reports, modules)

		if cfg.Archive.Backend == "" {
			fmt.Printf("   Archive:  %s\n", ui.RenderFaint("none configured (local-only)"))
			return nil
		}
		fmt.Printf("   Archive:  %s\n", describeArchive())

		arc, closeArc, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer closeArc()

		if err := arc.Ping(ctx); err != nil {
			fmt.Printf("   Reach:    %s %v\n", ui.RenderError("unreachable:"), err)
			return nil
		}
		fmt.Printf("   Reach:    %s\n", ui.RenderSuccess("ok"))
		return nil
	},
}

var syncWatchInterval time.Duration

var syncWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep syncing until interrupted",
	Long: `Stay connected and sync continuously.

With the dir backend, archive writes by other devices are picked up via
filesystem notifications. All backends additionally sync every
--interval. Stop with Ctrl-C; staged pushes are drained on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sy, cleanup, err := connectSyncer(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		if cfg.Archive.Backend == "dir" {
			d, err := daemon.New(sy, cfg.Archive.Dir, nil)
			if err != nil {
				return err
			}
			go func() {
				// Blocks until ctx is cancelled.
				if err := d.Start(ctx); err != nil {
					logger.Printf("WARNING: archive watcher stopped: %v", err)
				}
			}()
			defer d.Stop()
			fmt.Printf("%s Watching %s\n", ui.RenderAccent("👁"), cfg.Archive.Dir)
		}

		fmt.Printf("%s Syncing every %v, Ctrl-C to stop\n", ui.RenderAccent("🔄"), syncWatchInterval)

		ticker := time.NewTicker(syncWatchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				fmt.Println("\nShutting down, draining pending pushes...")
				return nil
			case <-ticker.C:
				if _, err := sy.RunSyncCycle(ctx); err != nil {
					logger.Printf("WARNING: periodic sync failed: %v", err)
				}
			}
		}
	},
}

func init() {
	syncWatchCmd.Flags().DurationVar(&syncWatchInterval, "interval", 5*time.Minute, "periodic sync interval")

	syncCmd.AddCommand(syncRunCmd)
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncWatchCmd)
	rootCmd.AddCommand(syncCmd)
}

// connectSyncer opens the store and archive and establishes a session.
// Unlike openSession, a configured-but-unreachable archive is an error.
func connectSyncer(ctx context.Context) (*syncer.Syncer, func(), error) {
	if cfg.Archive.Backend == "" {
		return nil, nil, fmt.Errorf("no archive backend configured; set archive.backend to \"gcs\" or \"dir\"")
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := st.SeedModulesIfEmpty(ctx); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("seed modules: %w", err)
	}

	arc, closeArc, err := openArchive(ctx)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	sy := syncer.New(st, arc, logger)
	if err := sy.Connect(ctx); err != nil {
		closeArc()
		st.Close()
		return nil, nil, err
	}

	cleanup := func() {
		sy.Disconnect()
		closeArc()
		st.Close()
	}
	return sy, cleanup, nil
}

func describeArchive() string {
	switch cfg.Archive.Backend {
	case "gcs":
		loc := "gs://" + cfg.Archive.Bucket
		if cfg.Archive.Prefix != "" {
			loc += "/" + cfg.Archive.Prefix
		}
		return loc
	case "dir":
		return "dir://" + cfg.Archive.Dir
	default:
		return cfg.Archive.Backend
	}
}
