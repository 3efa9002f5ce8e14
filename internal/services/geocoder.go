package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	AddressNotFound = "Could not find address for this location."
	AddressFailed   = "Failed to fetch address details."
)

var ErrNoAddress = errors.New("no address for location")

type nominatimResponse struct {
	Address struct {
		Road          string `json:"road"`
		Neighbourhood string `json:"neighbourhood"`
		Suburb        string `json:"suburb"`
		City          string `json:"city"`
		Postcode      string `json:"postcode"`
		State         string `json:"state"`
	} `json:"address"`
}

// Geocoder performs reverse lookups against a Nominatim-compatible endpoint.
type Geocoder struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

func NewGeocoder(baseURL string, timeout time.Duration) *Geocoder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Geocoder{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  "spothole-api/1.0",
	}
}

// Reverse returns a comma-separated address, most specific part first.
func (g *Geocoder) Reverse(ctx context.Context, latitude, longitude float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode geocode response: %w", err)
	}

	a := body.Address
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Road, a.Neighbourhood, a.Suburb, a.City, a.Postcode, a.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", ErrNoAddress
	}
	return strings.Join(parts, ", "), nil
}

// DescribeLocation never fails: lookup errors become fallback text.
func DescribeLocation(ctx context.Context, lookup AddressLookup, latitude, longitude float64) string {
	if lookup == nil {
		return AddressFailed
	}
	addr, err := lookup.Reverse(ctx, latitude, longitude)
	switch {
	case err == nil:
		return addr
	case errors.Is(err, ErrNoAddress):
		return AddressNotFound
	default:
		slog.Warn("reverse geocode failed", "error", err)
		return AddressFailed
	}
}
