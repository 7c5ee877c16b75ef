package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/costnav/costnav/internal/directory"
	"github.com/costnav/costnav/internal/observability"
)

// TxWriter is the slice of the directory write repository the pipeline
// drives inside one transaction.
type TxWriter interface {
	ProviderExists(ctx context.Context, providerID string) (bool, error)
	InsertProvider(ctx context.Context, in directory.ProviderInput) error
	UpsertDRG(ctx context.Context, in directory.DRGInput) error
	InsertDRGPrice(ctx context.Context, in directory.DRGPriceInput) error
	InsertRating(ctx context.Context, in directory.RatingInput) error
	DeleteZipCodes(ctx context.Context) (int64, error)
	InsertZipCode(ctx context.Context, in directory.ZipCodeInput) error
}

// Store runs a function inside a write transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(tx TxWriter) error) error
}

const defaultBatchSize = 500

type Pipeline struct {
	store     Store
	ratings   *RatingSource
	logger    *slog.Logger
	batchSize int
}

func NewPipeline(store Store, ratings *RatingSource, logger *slog.Logger, batchSize int) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if ratings == nil {
		return nil, fmt.Errorf("rating source is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Pipeline{store: store, ratings: ratings, logger: logger, batchSize: batchSize}, nil
}

// LoadPrices walks the price export and writes providers, DRGs, prices
// and synthetic ratings. Providers are deduplicated by first occurrence
// within the file and skipped entirely when already present in the
// database, so re-running a load does not double ratings. Commits happen
// every batchSize records.
func (p *Pipeline) LoadPrices(ctx context.Context, records PriceReader) (Stats, error) {
	var stats Stats
	seenProviders := make(map[string]struct{})
	seenDRGs := make(map[int64]struct{})

	for {
		batch, err := readBatch(records, p.batchSize)
		if err != nil {
			return stats, err
		}
		if len(batch) == 0 {
			break
		}

		err = p.store.WithTx(ctx, func(tx TxWriter) error {
			for _, rec := range batch {
				if err := p.loadPriceRecord(ctx, tx, rec, seenProviders, seenDRGs, &stats); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return stats, err
		}
		if len(batch) < p.batchSize {
			break
		}
	}

	stats.SkippedRows = records.Skipped()

	observability.AddETLRows("providers", stats.Providers)
	observability.AddETLRows("drgs", stats.DRGs)
	observability.AddETLRows("drg_prices", stats.Prices)
	observability.AddETLRows("ratings", stats.Ratings)

	p.logger.InfoContext(ctx, "price load complete",
		slog.Int("providers", stats.Providers),
		slog.Int("drgs", stats.DRGs),
		slog.Int("prices", stats.Prices),
		slog.Int("ratings", stats.Ratings),
		slog.Int("skipped_rows", stats.SkippedRows))
	return stats, nil
}

func (p *Pipeline) loadPriceRecord(ctx context.Context, tx TxWriter, rec PriceRecord, seenProviders map[string]struct{}, seenDRGs map[int64]struct{}, stats *Stats) error {
	if _, ok := seenProviders[rec.ProviderID]; !ok {
		exists, err := tx.ProviderExists(ctx, rec.ProviderID)
		if err != nil {
			return err
		}
		if !exists {
			if err := tx.InsertProvider(ctx, directory.ProviderInput{
				ProviderID:      rec.ProviderID,
				ProviderName:    rec.ProviderName,
				ProviderCity:    rec.ProviderCity,
				ProviderState:   rec.ProviderState,
				ProviderZipCode: rec.ProviderZipCode,
			}); err != nil {
				return err
			}
			stats.Providers++

			if err := tx.InsertRating(ctx, directory.RatingInput{
				ProviderID: rec.ProviderID,
				Rating:     p.ratings.Next(),
			}); err != nil {
				return err
			}
			stats.Ratings++
		}
		seenProviders[rec.ProviderID] = struct{}{}
	}

	if _, ok := seenDRGs[rec.DRGID]; !ok {
		if err := tx.UpsertDRG(ctx, directory.DRGInput{
			DRGID:      rec.DRGID,
			Definition: rec.DRGDefinition,
		}); err != nil {
			return err
		}
		seenDRGs[rec.DRGID] = struct{}{}
		stats.DRGs++
	}

	if err := tx.InsertDRGPrice(ctx, directory.DRGPriceInput{
		ProviderID:              rec.ProviderID,
		DRGID:                   rec.DRGID,
		TotalDischarges:         rec.TotalDischarges,
		AverageCoveredCharges:   rec.AverageCoveredCharges,
		AverageTotalPayments:    rec.AverageTotalPayments,
		AverageMedicarePayments: rec.AverageMedicarePayments,
	}); err != nil {
		return err
	}
	stats.Prices++
	return nil
}

// LoadZipCodes replaces the coordinate table wholesale. Delete and
// reload run in one transaction so lookups never observe a partial
// table.
func (p *Pipeline) LoadZipCodes(ctx context.Context, records []ZipRecord, skipped int) (Stats, error) {
	var stats Stats
	err := p.store.WithTx(ctx, func(tx TxWriter) error {
		deleted, err := tx.DeleteZipCodes(ctx)
		if err != nil {
			return err
		}
		p.logger.DebugContext(ctx, "cleared zip codes", slog.Int64("deleted", deleted))

		for _, rec := range records {
			if err := tx.InsertZipCode(ctx, directory.ZipCodeInput{
				ZipCode:   rec.ZipCode,
				Latitude:  rec.Latitude,
				Longitude: rec.Longitude,
			}); err != nil {
				return err
			}
			stats.ZipCodes++
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	stats.SkippedRows = skipped
	observability.AddETLRows("zip_codes", stats.ZipCodes)

	p.logger.InfoContext(ctx, "zip code load complete",
		slog.Int("zip_codes", stats.ZipCodes),
		slog.Int("skipped_rows", stats.SkippedRows))
	return stats, nil
}

func readBatch(records PriceReader, size int) ([]PriceRecord, error) {
	batch := make([]PriceRecord, 0, size)
	for len(batch) < size {
		rec, err := records.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		batch = append(batch, rec)
	}
	return batch, nil
}
