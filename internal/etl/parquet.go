package etl

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// parquetPriceRow mirrors the CSV column set so the same export can be
// shipped in either format.
type parquetPriceRow struct {
	ProviderID      string `parquet:"provider_id"`
	ProviderName    string `parquet:"provider_name"`
	ProviderCity    string `parquet:"provider_city"`
	ProviderState   string `parquet:"provider_state"`
	ProviderZipCode string `parquet:"provider_zip_code"`
	DRGDefinition   string `parquet:"ms_drg_definition"`

	TotalDischarges         float64 `parquet:"total_discharges"`
	AverageCoveredCharges   float64 `parquet:"average_covered_charges"`
	AverageTotalPayments    float64 `parquet:"average_total_payments"`
	AverageMedicarePayments float64 `parquet:"average_medicare_payments"`
}

const parquetReadBatch = 1024

// PriceParquetReader streams price records out of a Parquet export.
type PriceParquetReader struct {
	file    *os.File
	reader  *parquet.GenericReader[parquetPriceRow]
	buf     []parquetPriceRow
	pos     int
	n       int
	eof     bool
	skipped int
}

func NewPriceParquetReader(path string) (*PriceParquetReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	return &PriceParquetReader{
		file:   file,
		reader: parquet.NewGenericReader[parquetPriceRow](file),
		buf:    make([]parquetPriceRow, parquetReadBatch),
	}, nil
}

func (r *PriceParquetReader) Next() (PriceRecord, error) {
	for {
		if r.pos >= r.n {
			if r.eof {
				return PriceRecord{}, io.EOF
			}
			n, err := r.reader.Read(r.buf)
			if err == io.EOF {
				r.eof = true
			} else if err != nil {
				return PriceRecord{}, fmt.Errorf("read parquet: %w", err)
			}
			r.pos, r.n = 0, n
			continue
		}

		row := r.buf[r.pos]
		r.pos++
		rec, ok := convertParquetRow(row)
		if !ok {
			r.skipped++
			continue
		}
		return rec, nil
	}
}

func (r *PriceParquetReader) Skipped() int {
	return r.skipped
}

func (r *PriceParquetReader) Close() error {
	if err := r.reader.Close(); err != nil {
		_ = r.file.Close()
		return err
	}
	return r.file.Close()
}

func convertParquetRow(row parquetPriceRow) (PriceRecord, bool) {
	rec := PriceRecord{
		ProviderID:      sanitize(row.ProviderID),
		ProviderName:    sanitize(row.ProviderName),
		ProviderCity:    sanitize(row.ProviderCity),
		ProviderState:   sanitize(row.ProviderState),
		ProviderZipCode: sanitize(row.ProviderZipCode),
		DRGDefinition:   sanitize(row.DRGDefinition),

		TotalDischarges:         int(row.TotalDischarges),
		AverageCoveredCharges:   row.AverageCoveredCharges,
		AverageTotalPayments:    row.AverageTotalPayments,
		AverageMedicarePayments: row.AverageMedicarePayments,
	}
	if rec.ProviderID == "" || rec.ProviderName == "" || rec.DRGDefinition == "" {
		return PriceRecord{}, false
	}
	drgID, ok := parseDRGID(rec.DRGDefinition)
	if !ok {
		return PriceRecord{}, false
	}
	rec.DRGID = drgID
	return rec, true
}
