package etl

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var requiredPriceColumns = []string{
	"provider_id", "provider_name", "provider_city", "provider_state",
	"provider_zip_code", "ms_drg_definition", "total_discharges",
	"average_covered_charges", "average_total_payments", "average_medicare_payments",
}

var requiredZipColumns = []string{"zip_code", "latitude", "longitude"}

// PriceCSVReader streams price records out of a CMS CSV export.
type PriceCSVReader struct {
	csv     *csv.Reader
	cols    map[string]int
	skipped int
}

func NewPriceCSVReader(r io.Reader) (*PriceCSVReader, error) {
	cr := newCSVReader(r)
	cols, err := readHeaderIndex(cr, requiredPriceColumns)
	if err != nil {
		return nil, err
	}
	return &PriceCSVReader{csv: cr, cols: cols}, nil
}

func (r *PriceCSVReader) Next() (PriceRecord, error) {
	for {
		row, err := r.csv.Read()
		if err != nil {
			return PriceRecord{}, err
		}
		if isBlankRow(row) {
			continue
		}
		rec, ok := r.parseRow(row)
		if !ok {
			r.skipped++
			continue
		}
		return rec, nil
	}
}

func (r *PriceCSVReader) Skipped() int {
	return r.skipped
}

func (r *PriceCSVReader) parseRow(row []string) (PriceRecord, bool) {
	rec := PriceRecord{
		ProviderID:      sanitize(r.fieldAt(row, "provider_id")),
		ProviderName:    sanitize(r.fieldAt(row, "provider_name")),
		ProviderCity:    sanitize(r.fieldAt(row, "provider_city")),
		ProviderState:   sanitize(r.fieldAt(row, "provider_state")),
		ProviderZipCode: sanitize(r.fieldAt(row, "provider_zip_code")),
		DRGDefinition:   sanitize(r.fieldAt(row, "ms_drg_definition")),
	}
	if rec.ProviderID == "" || rec.ProviderName == "" || rec.DRGDefinition == "" {
		return PriceRecord{}, false
	}

	drgID, ok := parseDRGID(rec.DRGDefinition)
	if !ok {
		return PriceRecord{}, false
	}
	rec.DRGID = drgID

	discharges, ok := parseMoney(r.fieldAt(row, "total_discharges"))
	if !ok {
		return PriceRecord{}, false
	}
	rec.TotalDischarges = int(discharges)

	if rec.AverageCoveredCharges, ok = parseMoney(r.fieldAt(row, "average_covered_charges")); !ok {
		return PriceRecord{}, false
	}
	if rec.AverageTotalPayments, ok = parseMoney(r.fieldAt(row, "average_total_payments")); !ok {
		return PriceRecord{}, false
	}
	if rec.AverageMedicarePayments, ok = parseMoney(r.fieldAt(row, "average_medicare_payments")); !ok {
		return PriceRecord{}, false
	}
	return rec, true
}

func (r *PriceCSVReader) fieldAt(row []string, col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// ReadZipCSV slurps the ZIP coordinate table. Rows with unparsable ZIP
// keys or coordinates are skipped and counted.
func ReadZipCSV(r io.Reader) ([]ZipRecord, int, error) {
	cr := newCSVReader(r)
	cols, err := readHeaderIndex(cr, requiredZipColumns)
	if err != nil {
		return nil, 0, err
	}

	fieldAt := func(row []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []ZipRecord
	skipped := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("read zip row: %w", err)
		}
		if isBlankRow(row) {
			continue
		}

		zip, ok := normalizeZip(fieldAt(row, "zip_code"))
		if !ok {
			skipped++
			continue
		}
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(fieldAt(row, "latitude")), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(fieldAt(row, "longitude")), 64)
		if errLat != nil || errLon != nil {
			skipped++
			continue
		}
		records = append(records, ZipRecord{ZipCode: zip, Latitude: lat, Longitude: lon})
	}
	return records, skipped, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	buf := bufio.NewReaderSize(r, 256*1024)

	// Skip UTF-8 BOM if present
	if bom, err := buf.Peek(3); err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = buf.Discard(3)
	}

	cr := csv.NewReader(buf)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	return cr
}

func readHeaderIndex(cr *csv.Reader, required []string) (map[string]int, error) {
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var missing []string
	for _, col := range required {
		if _, ok := cols[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func isBlankRow(row []string) bool {
	return len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "")
}
