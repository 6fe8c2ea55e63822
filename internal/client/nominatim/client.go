// Package nominatim resolves addresses through the OpenStreetMap Nominatim API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vendordesk/internal/domain"

	"golang.org/x/time/rate"
)

// Client implements geocode.Provider. Requests are paced by a limiter since the
// public instance allows at most one request per second per application.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// New builds a Client. userAgent must identify the application; Nominatim rejects generic agents.
func New(baseURL, userAgent string, timeout time.Duration, perSecond float64, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:     logger,
	}
}

type addressDetails struct {
	Postcode      string `json:"postcode"`
	State         string `json:"state"`
	StateDistrict string `json:"state_district"`
	County        string `json:"county"`
	City          string `json:"city"`
	Country       string `json:"country"`
}

type place struct {
	Address addressDetails `json:"address"`
	Error   string         `json:"error"`
}

// Reverse looks up the address at the given coordinates.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (domain.Address, error) {
	q := url.Values{}
	q.Set("lat", formatCoord(lat))
	q.Set("lon", formatCoord(lon))
	q.Set("format", "json")
	q.Set("addressdetails", "1")

	var out place
	if err := c.get(ctx, "reverse", q, &out); err != nil {
		return domain.Address{}, err
	}
	if out.Error != "" {
		return domain.Address{}, fmt.Errorf("%w: %s", domain.ErrGeocodeLookupFailed, out.Error)
	}
	return toAddress(out.Address), nil
}

// SearchPostalCode returns candidate addresses for a postal code within countryCode.
func (c *Client) SearchPostalCode(ctx context.Context, code, countryCode string) ([]domain.Address, error) {
	q := url.Values{}
	q.Set("postalcode", code)
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	if countryCode != "" {
		q.Set("countrycodes", strings.ToLower(countryCode))
	}

	var out []place
	if err := c.get(ctx, "search", q, &out); err != nil {
		return nil, err
	}
	addrs := make([]domain.Address, 0, len(out))
	for _, p := range out {
		addrs = append(addrs, toAddress(p.Address))
	}
	return addrs, nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("nominatim %s: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("nominatim %s: build request: %w", endpoint, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Printf("nominatim: %s error=%v", endpoint, err)
		return fmt.Errorf("nominatim %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Printf("nominatim: %s status=%d", endpoint, resp.StatusCode)
		return fmt.Errorf("nominatim %s: unexpected status %d", endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("nominatim %s: decode: %w", endpoint, err)
	}
	return nil
}

func toAddress(a addressDetails) domain.Address {
	district := a.StateDistrict
	if district == "" {
		district = a.County
	}
	if district == "" {
		district = a.City
	}
	return domain.Address{
		Pincode:  a.Postcode,
		State:    a.State,
		District: district,
		Country:  a.Country,
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
