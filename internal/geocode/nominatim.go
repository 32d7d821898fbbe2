package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org/reverse"

// maxAddressLen bounds the display address; longer lines are cut with an
// ellipsis.
const maxAddressLen = 90

// Client performs reverse-geocode lookups against the Nominatim API.
// Nominatim's usage policy requires an identifying User-Agent on every call.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a Nominatim client. The http.Client is expected to carry
// the outbound timeout.
func NewClient(httpClient *http.Client, userAgent string) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		HouseNumber   string `json:"house_number"`
		Road          string `json:"road"`
		Neighbourhood string `json:"neighbourhood"`
		Suburb        string `json:"suburb"`
		City          string `json:"city"`
		Town          string `json:"town"`
		Village       string `json:"village"`
		Hamlet        string `json:"hamlet"`
		County        string `json:"county"`
		State         string `json:"state"`
		Postcode      string `json:"postcode"`
	} `json:"address"`
}

// ReverseGeocode resolves a coordinate to a short display address, or nil
// when the service has nothing usable for it.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (*string, error) {
	values := url.Values{}
	values.Set("format", "jsonv2")
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("zoom", "18")
	values.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim status %d", resp.StatusCode)
	}

	var payload nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return buildAddressLine(payload), nil
}

// buildAddressLine assembles a short display line from structured address
// components, joining only the parts that are present. Falls back to the
// provider's display_name, then to nil.
func buildAddressLine(p nominatimResponse) *string {
	a := p.Address

	var parts []string
	switch {
	case a.HouseNumber != "" && a.Road != "":
		parts = append(parts, a.HouseNumber+" "+a.Road)
	case a.Road != "":
		parts = append(parts, a.Road)
	case a.Neighbourhood != "":
		parts = append(parts, a.Neighbourhood)
	case a.Suburb != "":
		parts = append(parts, a.Suburb)
	}

	if locality := firstNonEmpty(a.City, a.Town, a.Village, a.Hamlet, a.County); locality != "" {
		parts = append(parts, locality)
	}
	if tail := strings.TrimSpace(a.State + " " + a.Postcode); tail != "" {
		parts = append(parts, tail)
	}

	line := strings.Join(parts, ", ")
	if line == "" {
		line = p.DisplayName
	}
	if line == "" {
		return nil
	}

	line = truncate(line, maxAddressLen)
	return &line
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
