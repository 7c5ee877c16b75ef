package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/costnav/costnav/internal/geo"
)

// Service composes the grouped provider query with the optional radius
// post-filter and guarantees name-sorted output.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Search returns providers matching filter, each with its averaged
// rating. When the geo filter applies, every returned provider carries
// DistanceKM <= *filter.RadiusKM; providers whose own ZIP has no stored
// coordinates are skipped rather than errored. An unknown search ZIP
// yields *ZipNotFoundError; any other geo-phase failure yields *GeoError.
func (s *Service) Search(ctx context.Context, filter SearchFilter) ([]Provider, error) {
	providers, err := s.store.SearchProviders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search providers: %w", err)
	}

	if filter.HasGeoFilter() {
		providers, err = s.filterByRadius(ctx, providers, filter.Zip, *filter.RadiusKM)
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(providers, func(i, j int) bool {
		return providers[i].ProviderName < providers[j].ProviderName
	})
	return providers, nil
}

func (s *Service) filterByRadius(ctx context.Context, providers []Provider, zip string, radiusKM float64) ([]Provider, error) {
	origin, err := s.store.ZipCoordinates(ctx, zip)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &ZipNotFoundError{Zip: zip}
		}
		return nil, &GeoError{Err: err}
	}

	filtered := make([]Provider, 0, len(providers))
	for _, provider := range providers {
		coords, err := s.store.ZipCoordinates(ctx, provider.ProviderZipCode)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Providers with unresolvable ZIPs are excluded, not errored.
				continue
			}
			return nil, &GeoError{Err: err}
		}
		distance := geo.Distance(origin.Latitude, origin.Longitude, coords.Latitude, coords.Longitude)
		if distance <= radiusKM {
			provider.DistanceKM = &distance
			filtered = append(filtered, provider)
		}
	}
	return filtered, nil
}
