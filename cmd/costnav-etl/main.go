package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/costnav/costnav/internal/config"
	directorypostgres "github.com/costnav/costnav/internal/directory/postgres"
	"github.com/costnav/costnav/internal/etl"
	"github.com/costnav/costnav/internal/observability"
	"github.com/costnav/costnav/internal/storage"
	s3store "github.com/costnav/costnav/internal/storage/s3"
)

func main() {
	prices := flag.String("prices", "", "price export to load, CSV or Parquet by extension")
	zips := flag.String("zips", "", "zip code coordinate CSV to load")
	fromObject := flag.Bool("from-object", false, "treat inputs as object store keys instead of local paths")
	flag.Parse()

	if *prices == "" && *zips == "" {
		slog.Error("nothing to load: pass -prices and/or -zips")
		os.Exit(2)
	}

	cfg, err := config.LoadFromEnv("costnav-etl")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := directorypostgres.Open(ctx, directorypostgres.DBConfig{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open directory db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	pipeline, err := etl.NewPipeline(
		loaderStore{loader: directorypostgres.NewLoader(db)},
		etl.NewRatingSource(cfg.ETL.RatingSeed),
		logger,
		cfg.ETL.BatchSize,
	)
	if err != nil {
		logger.Error("failed to initialize pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	var store storage.ObjectStore
	if *fromObject {
		store, err = s3store.New(s3store.Config{
			Endpoint:        cfg.ObjectStore.Endpoint,
			Region:          cfg.ObjectStore.Region,
			Bucket:          cfg.ObjectStore.Bucket,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
			UseSSL:          cfg.ObjectStore.UseSSL,
			Prefix:          cfg.ObjectStore.Prefix,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
	}

	if *prices != "" {
		path, cleanup, err := resolveInput(ctx, store, *prices)
		if err != nil {
			logger.Error("failed to fetch price export", slog.String("input", *prices), slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("loading price export", slog.String("input", *prices))
		_, err = loadPrices(ctx, pipeline, path)
		cleanup()
		if err != nil {
			logger.Error("price load failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	if *zips != "" {
		path, cleanup, err := resolveInput(ctx, store, *zips)
		if err != nil {
			logger.Error("failed to fetch zip code export", slog.String("input", *zips), slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("loading zip codes", slog.String("input", *zips))
		_, err = loadZipCodes(ctx, pipeline, path)
		cleanup()
		if err != nil {
			logger.Error("zip code load failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}

// loaderStore adapts the directory write loader to the pipeline's
// transaction contract.
type loaderStore struct {
	loader *directorypostgres.Loader
}

func (s loaderStore) WithTx(ctx context.Context, fn func(tx etl.TxWriter) error) error {
	return s.loader.WithTx(ctx, func(tx *directorypostgres.TxLoader) error {
		return fn(tx)
	})
}

// resolveInput returns a local path for the named input, downloading it
// to a temp file when an object store is configured.
func resolveInput(ctx context.Context, store storage.ObjectStore, name string) (string, func(), error) {
	if store == nil {
		return name, func() {}, nil
	}
	return etl.FetchToTemp(ctx, store, name)
}

func loadPrices(ctx context.Context, pipeline *etl.Pipeline, path string) (etl.Stats, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		reader, err := etl.NewPriceParquetReader(path)
		if err != nil {
			return etl.Stats{}, err
		}
		defer func() { _ = reader.Close() }()
		return pipeline.LoadPrices(ctx, reader)
	}

	f, err := os.Open(path)
	if err != nil {
		return etl.Stats{}, err
	}
	defer func() { _ = f.Close() }()
	reader, err := etl.NewPriceCSVReader(f)
	if err != nil {
		return etl.Stats{}, err
	}
	return pipeline.LoadPrices(ctx, reader)
}

func loadZipCodes(ctx context.Context, pipeline *etl.Pipeline, path string) (etl.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return etl.Stats{}, err
	}
	defer func() { _ = f.Close() }()

	records, skipped, err := etl.ReadZipCSV(f)
	if err != nil {
		return etl.Stats{}, err
	}
	return pipeline.LoadZipCodes(ctx, records, skipped)
}
