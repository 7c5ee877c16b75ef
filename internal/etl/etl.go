// Package etl loads CMS pricing exports and ZIP coordinate tables into
// the provider directory. Sources are CSV or Parquet files, read either
// from local disk or from the object store.
package etl

// PriceRecord is one normalized row of the CMS pricing export. DRGID is
// parsed from the leading digits of the DRG definition.
type PriceRecord struct {
	ProviderID      string
	ProviderName    string
	ProviderCity    string
	ProviderState   string
	ProviderZipCode string
	DRGID           int64
	DRGDefinition   string

	TotalDischarges         int
	AverageCoveredCharges   float64
	AverageTotalPayments    float64
	AverageMedicarePayments float64
}

// ZipRecord is one row of the ZIP coordinate table.
type ZipRecord struct {
	ZipCode   string
	Latitude  float64
	Longitude float64
}

// PriceReader yields normalized price records from a source file.
// Next returns io.EOF after the last record. Rows that fail validation
// are skipped, not returned as errors; Skipped reports how many.
type PriceReader interface {
	Next() (PriceRecord, error)
	Skipped() int
}

// Stats summarizes what a load run wrote.
type Stats struct {
	Providers   int
	DRGs        int
	Prices      int
	Ratings     int
	ZipCodes    int
	SkippedRows int
}
