package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/authigel/internal/buildinfo"
	"github.com/dmitrijs2005/authigel/internal/client/backupstore"
	"github.com/dmitrijs2005/authigel/internal/client/cli"
	"github.com/dmitrijs2005/authigel/internal/client/config"
	"github.com/dmitrijs2005/authigel/internal/client/keystore"
	"github.com/dmitrijs2005/authigel/internal/client/services"
	"github.com/dmitrijs2005/authigel/internal/client/storage"
	"github.com/dmitrijs2005/authigel/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewTextLogger(os.Stderr, level)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	defer store.Close()

	dest, err := newDestination(ctx, cfg)
	if err != nil {
		return err
	}

	records := services.NewRecordService(store, nil, logger.With("component", "records"))
	backups := services.NewBackupService(store, dest, keystore.NewFileKeystore(cfg.KeystorePath), records,
		services.WithKeep(cfg.Keep),
		services.WithLocation(loc),
		services.WithLogger(logger),
	)

	app := cli.NewApp(records, backups, dest.Describe(), logger)

	go app.StartAutoBackupWatcher(ctx, cfg.CheckInterval)

	app.Run(ctx, os.Stdin)
	return nil
}

func newDestination(ctx context.Context, cfg *config.Config) (backupstore.Store, error) {
	if !cfg.S3.Enabled() {
		return backupstore.NewDirStore(cfg.BackupDir), nil
	}

	s3, err := backupstore.NewS3Store(ctx, backupstore.S3Config{
		Bucket:    cfg.S3.Bucket,
		Prefix:    cfg.S3.Prefix,
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing s3 destination: %w", err)
	}
	return s3, nil
}
