// Package geocode resolves coordinates to a free-text place label.
// Lookups are best-effort: on any failure the caller falls back to the
// raw coordinates. Geocoding has no sync involvement.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Geocoder turns coordinates into a human-readable place label.
type Geocoder interface {
	// ReverseLookup returns a label for the coordinates, or an error
	// the caller is free to ignore.
	ReverseLookup(ctx context.Context, lat, lon float64) (string, error)
}

// HTTPGeocoder queries a Nominatim-style reverse geocoding endpoint.
type HTTPGeocoder struct {
	endpoint string
	client   *http.Client
}

// NewHTTP creates a geocoder against the given endpoint (the URL of a
// /reverse resource accepting lat/lon query parameters and returning
// JSON with a display_name field).
func NewHTTP(endpoint string, timeout time.Duration) *HTTPGeocoder {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPGeocoder{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// ReverseLookup queries the endpoint for a place label.
func (g *HTTPGeocoder) ReverseLookup(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lon))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", "sitesync")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode endpoint returned %s", resp.Status)
	}

	var body struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to parse geocode response: %w", err)
	}
	if body.DisplayName == "" {
		return "", fmt.Errorf("geocode response has no place label")
	}
	return body.DisplayName, nil
}

// Label resolves coordinates with the given geocoder, falling back to
// "lat, lon" when the geocoder is nil or fails.
func Label(ctx context.Context, g Geocoder, lat, lon float64) string {
	if g != nil {
		if label, err := g.ReverseLookup(ctx, lat, lon); err == nil {
			return label
		}
	}
	return fmt.Sprintf("%.5f, %.5f", lat, lon)
}
