package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sitewerk/sitesync/internal/archive"
	"github.com/sitewerk/sitesync/internal/config"
	"github.com/sitewerk/sitesync/internal/store"
	"github.com/sitewerk/sitesync/internal/syncer"
	"github.com/sitewerk/sitesync/internal/ui"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sitesync",
	Short: "Offline-first site inspection reports with remote sync",
	Long: `sitesync keeps site inspection reports and reusable text modules in a
local SQLite database and reconciles them with a remote archive when one
is reachable.

All commands work offline. When an archive backend is configured
(archive.backend = "gcs" or "dir"), record commands push their changes
after saving locally, and 'sitesync sync run' performs a full
pull/merge/push cycle.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = c
		logger = newLogger(c)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default sitesync.yaml, then ~/.config/sitesync/)")
	rootCmd.AddGroup(
		&cobra.Group{ID: "records", Title: "Record commands:"},
		&cobra.Group{ID: "sync", Title: "Sync commands:"},
	)
}

func newLogger(c *config.Config) *log.Logger {
	if c.LogFile == "" {
		return log.New(os.Stderr, "[sitesync] ", log.LstdFlags)
	}
	return log.New(&lumberjack.Logger{
		Filename:   c.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}, "[sitesync] ", log.LstdFlags)
}

// openArchive builds the configured archive backend. A nil archive with
// a nil error means no backend is configured (local-only mode).
func openArchive(ctx context.Context) (archive.Archive, func(), error) {
	switch cfg.Archive.Backend {
	case "":
		return nil, func() {}, nil
	case "dir":
		a, err := archive.NewDir(cfg.Archive.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open dir archive: %w", err)
		}
		return a, func() {}, nil
	case "gcs":
		a, err := archive.NewGCS(ctx, archive.GCSConfig{
			Bucket:          cfg.Archive.Bucket,
			Prefix:          cfg.Archive.Prefix,
			CredentialsFile: cfg.Archive.CredentialsFile,
			CallTimeout:     cfg.Archive.CallTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open gcs archive: %w", err)
		}
		return a, func() { a.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown archive backend %q", cfg.Archive.Backend)
	}
}

// session bundles the open store and syncer for one command invocation.
type session struct {
	store  *store.Store
	syncer *syncer.Syncer

	closeArchive func()
}

// openSession opens the local store, seeds the starter modules on first
// run and connects to the remote archive when one is configured.
// Connection failures are not fatal: the command proceeds offline.
func openSession(ctx context.Context) (*session, error) {
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if n, err := st.SeedModulesIfEmpty(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("seed modules: %w", err)
	} else if n > 0 {
		logger.Printf("seeded %d starter module(s)", n)
	}

	arc, closeArc, err := openArchive(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}

	sy := syncer.New(st, arc, logger)
	if arc != nil {
		if err := sy.Connect(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "%s archive unreachable, working offline: %v\n", ui.RenderWarn("⚠"), err)
		}
	}

	return &session{store: st, syncer: sy, closeArchive: closeArc}, nil
}

// close drains pending pushes, then releases the archive and store.
func (s *session) close() {
	s.syncer.Disconnect()
	s.closeArchive()
	s.store.Close()
}
