package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/costnav/costnav/internal/directory"
	"github.com/costnav/costnav/internal/observability"
)

type providerResponse struct {
	ProviderID      string   `json:"provider_id"`
	ProviderName    string   `json:"provider_name"`
	ProviderCity    string   `json:"provider_city"`
	ProviderState   string   `json:"provider_state"`
	ProviderZipCode string   `json:"provider_zip_code"`
	Rating          *int     `json:"rating"`
	DistanceKM      *float64 `json:"distance_km"`
}

func handleProviders(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Directory == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SEARCH_NOT_CONFIGURED", "provider search is not configured", false, nil)
		return
	}

	params := r.URL.Query()
	filter := directory.SearchFilter{
		DRG: params.Get("drg"),
		Zip: params.Get("zip"),
	}
	if raw := strings.TrimSpace(params.Get("radius_km")); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ARGUMENT", "radius_km must be a number", false, map[string]any{"radius_km": raw})
			return
		}
		filter.RadiusKM = &radius
	}

	providers, err := deps.Directory.Search(r.Context(), filter)
	if err != nil {
		writeSearchError(w, r, err)
		return
	}
	observability.ObserveProviderSearch(drgFilterLabel(filter.DRG), geoFilterLabel(filter), len(providers))

	response := make([]providerResponse, 0, len(providers))
	for _, provider := range providers {
		response = append(response, providerResponse{
			ProviderID:      provider.ProviderID,
			ProviderName:    provider.ProviderName,
			ProviderCity:    provider.ProviderCity,
			ProviderState:   provider.ProviderState,
			ProviderZipCode: provider.ProviderZipCode,
			Rating:          provider.Rating,
			DistanceKM:      provider.DistanceKM,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	var zipErr *directory.ZipNotFoundError
	if errors.As(err, &zipErr) {
		writeError(r.Context(), w, http.StatusBadRequest, "ZIP_NOT_FOUND", "Invalid ZIP code: "+zipErr.Error(), false, map[string]any{"zip": zipErr.Zip})
		return
	}
	var geoErr *directory.GeoError
	if errors.As(err, &geoErr) {
		writeError(r.Context(), w, http.StatusInternalServerError, "GEO_SEARCH_FAILED", "Error processing geographic search: "+geoErr.Err.Error(), true, nil)
		return
	}
	writeError(r.Context(), w, http.StatusInternalServerError, "PROVIDER_SEARCH_FAILED", "provider search failed", true, map[string]any{"details": err.Error()})
}

func drgFilterLabel(drg string) string {
	if drg == "" {
		return "none"
	}
	for _, r := range drg {
		if r < '0' || r > '9' {
			return "text"
		}
	}
	return "id"
}

func geoFilterLabel(filter directory.SearchFilter) string {
	if filter.HasGeoFilter() {
		return "radius"
	}
	return "none"
}
