package directory

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("directory: not found")

// Store is the persistence surface the search service reads from.
type Store interface {
	SearchProviders(ctx context.Context, filter SearchFilter) ([]Provider, error)
	ZipCoordinates(ctx context.Context, zip string) (Coordinates, error)
}

// Provider is one hospital row with its aggregated rating and, when a
// radius filter ran, the distance from the search ZIP.
type Provider struct {
	ProviderID      string
	ProviderName    string
	ProviderCity    string
	ProviderState   string
	ProviderZipCode string
	Rating          *int
	DistanceKM      *float64
}

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// SearchFilter carries the optional /providers criteria. DRG consisting
// only of digits selects the exact-id path; any other non-empty value
// selects the case-insensitive definition substring path.
type SearchFilter struct {
	DRG      string
	Zip      string
	RadiusKM *float64
}

// HasGeoFilter reports whether the radius post-filter applies: both a
// search ZIP and a non-zero radius must be supplied.
func (f SearchFilter) HasGeoFilter() bool {
	return f.Zip != "" && f.RadiusKM != nil && *f.RadiusKM != 0
}

// ProviderInput, DRGInput, DRGPriceInput, RatingInput and ZipCodeInput
// are the write-side records the ETL loader persists. The API never
// writes any of them.

type ProviderInput struct {
	ProviderID      string
	ProviderName    string
	ProviderCity    string
	ProviderState   string
	ProviderZipCode string
}

type DRGInput struct {
	DRGID      int64
	Definition string
}

type DRGPriceInput struct {
	ProviderID              string
	DRGID                   int64
	TotalDischarges         int
	AverageCoveredCharges   float64
	AverageTotalPayments    float64
	AverageMedicarePayments float64
}

type RatingInput struct {
	ProviderID string
	Rating     int
}

type ZipCodeInput struct {
	ZipCode   string
	Latitude  float64
	Longitude float64
}

// ZipNotFoundError is returned when the search ZIP has no stored
// coordinates. The message is user-facing.
type ZipNotFoundError struct {
	Zip string
}

func (e *ZipNotFoundError) Error() string {
	return fmt.Sprintf("ZIP code %s not found in database", e.Zip)
}

// GeoError wraps any non-lookup failure during the radius filter phase.
type GeoError struct {
	Err error
}

func (e *GeoError) Error() string {
	return fmt.Sprintf("geographic search: %v", e.Err)
}

func (e *GeoError) Unwrap() error {
	return e.Err
}
