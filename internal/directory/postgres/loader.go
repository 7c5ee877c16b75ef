package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/costnav/costnav/internal/directory"
)

// Loader is the write side of the directory, used only by the ETL
// pipeline. All writes happen inside explicit transactions.
type Loader struct {
	db *sql.DB
}

func NewLoader(db *sql.DB) *Loader {
	return &Loader{db: db}
}

func (l *Loader) WithTx(ctx context.Context, fn func(tx *TxLoader) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&TxLoader{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load tx: %w", err)
	}
	return nil
}

type TxLoader struct {
	q dbTX
}

func (t *TxLoader) ProviderExists(ctx context.Context, providerID string) (bool, error) {
	var exists bool
	if err := t.q.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM providers WHERE provider_id = $1)`, providerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check provider %s: %w", providerID, err)
	}
	return exists, nil
}

func (t *TxLoader) InsertProvider(ctx context.Context, in directory.ProviderInput) error {
	if _, err := t.q.ExecContext(ctx, `
INSERT INTO providers (provider_id, provider_name, provider_city, provider_state, provider_zip_code)
VALUES ($1, $2, $3, $4, $5)`,
		in.ProviderID, in.ProviderName, in.ProviderCity, in.ProviderState, in.ProviderZipCode); err != nil {
		return fmt.Errorf("insert provider %s: %w", in.ProviderID, err)
	}
	return nil
}

func (t *TxLoader) UpsertDRG(ctx context.Context, in directory.DRGInput) error {
	if _, err := t.q.ExecContext(ctx, `
INSERT INTO drgs (drg_id, ms_drg_definition)
VALUES ($1, $2)
ON CONFLICT (drg_id)
DO UPDATE SET ms_drg_definition = EXCLUDED.ms_drg_definition`,
		in.DRGID, in.Definition); err != nil {
		return fmt.Errorf("upsert drg %d: %w", in.DRGID, err)
	}
	return nil
}

func (t *TxLoader) InsertDRGPrice(ctx context.Context, in directory.DRGPriceInput) error {
	if _, err := t.q.ExecContext(ctx, `
INSERT INTO drg_prices (provider_id, drg_id, total_discharges, average_covered_charges, average_total_payments, average_medicare_payments)
VALUES ($1, $2, $3, $4, $5, $6)`,
		in.ProviderID, in.DRGID, in.TotalDischarges, in.AverageCoveredCharges, in.AverageTotalPayments, in.AverageMedicarePayments); err != nil {
		return fmt.Errorf("insert drg price for %s/%d: %w", in.ProviderID, in.DRGID, err)
	}
	return nil
}

func (t *TxLoader) InsertRating(ctx context.Context, in directory.RatingInput) error {
	if _, err := t.q.ExecContext(ctx, `
INSERT INTO ratings (provider_id, rating)
VALUES ($1, $2)`,
		in.ProviderID, in.Rating); err != nil {
		return fmt.Errorf("insert rating for %s: %w", in.ProviderID, err)
	}
	return nil
}

// DeleteZipCodes clears the lookup table before a reload.
func (t *TxLoader) DeleteZipCodes(ctx context.Context) (int64, error) {
	result, err := t.q.ExecContext(ctx, `DELETE FROM zip_codes`)
	if err != nil {
		return 0, fmt.Errorf("delete zip codes: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete zip codes rows affected: %w", err)
	}
	return rows, nil
}

func (t *TxLoader) InsertZipCode(ctx context.Context, in directory.ZipCodeInput) error {
	if _, err := t.q.ExecContext(ctx, `
INSERT INTO zip_codes (zip_code, latitude, longitude)
VALUES ($1, $2, $3)`,
		in.ZipCode, in.Latitude, in.Longitude); err != nil {
		return fmt.Errorf("insert zip code %s: %w", in.ZipCode, err)
	}
	return nil
}
