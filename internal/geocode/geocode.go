package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ncecere/attendance/backend/internal/cache"
	"github.com/ncecere/attendance/backend/internal/config"
)

var ErrLookupFailed = errors.New("reverse geocoding failed")

// Place is the human readable location of a coordinate pair.
type Place struct {
	Address  string `json:"address"`
	Road     string `json:"road,omitempty"`
	City     string `json:"city,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	Country  string `json:"country,omitempty"`
}

// Resolver turns coordinates into a Place.
type Resolver interface {
	Reverse(ctx context.Context, lat, lng float64) (Place, error)
}

// Noop resolves every coordinate to an empty Place. Used when geocoding is disabled.
type Noop struct{}

func (Noop) Reverse(context.Context, float64, float64) (Place, error) { return Place{}, nil }

// Client queries a Nominatim-compatible /reverse endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	language   string
	client     *http.Client
	maxRetries int
}

func NewClient(cfg config.GeocodingConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		language:   cfg.Language,
		client:     &http.Client{Timeout: timeout},
		maxRetries: 2,
	}
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
	Address     struct {
		Road        string `json:"road"`
		HouseNumber string `json:"house_number"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		Postcode    string `json:"postcode"`
		Country     string `json:"country"`
	} `json:"address"`
}

func (c *Client) Reverse(ctx context.Context, lat, lng float64) (Place, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', 6, 64))
	if c.language != "" {
		q.Set("accept-language", c.language)
	}
	endpoint := c.baseURL + "/reverse?" + q.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		place, retry, err := c.fetch(ctx, endpoint)
		if err == nil {
			return place, nil
		}
		lastErr = err
		if !retry {
			break
		}
		select {
		case <-ctx.Done():
			return Place{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
		}
	}
	return Place{}, fmt.Errorf("%w: %v", ErrLookupFailed, lastErr)
}

// fetch performs one request. retry reports whether the failure is transient.
func (c *Client) fetch(ctx context.Context, endpoint string) (Place, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Place{}, false, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Place{}, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return Place{}, true, fmt.Errorf("status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return Place{}, false, fmt.Errorf("status %d", resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Place{}, false, fmt.Errorf("decode response: %w", err)
	}
	if body.Error != "" {
		return Place{}, false, errors.New(body.Error)
	}

	city := body.Address.City
	if city == "" {
		city = body.Address.Town
	}
	if city == "" {
		city = body.Address.Village
	}
	road := strings.TrimSpace(strings.Join([]string{body.Address.HouseNumber, body.Address.Road}, " "))
	return Place{
		Address:  body.DisplayName,
		Road:     road,
		City:     city,
		Postcode: body.Address.Postcode,
		Country:  body.Address.Country,
	}, false, nil
}

// Metrics receives one result label ("hit", "miss", "error") per lookup.
type Metrics interface {
	RecordGeocode(result string)
}

// CachedResolver memoizes lookups in Redis, keyed by coordinates rounded to 4 decimals (~11 m).
type CachedResolver struct {
	next    Resolver
	cache   *cache.JSONCache
	metrics Metrics
	logger  *slog.Logger
}

func NewCachedResolver(next Resolver, c *cache.JSONCache, metrics Metrics, logger *slog.Logger) *CachedResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedResolver{next: next, cache: c, metrics: metrics, logger: logger}
}

func (r *CachedResolver) Reverse(ctx context.Context, lat, lng float64) (Place, error) {
	key := CacheKey(lat, lng)

	var place Place
	found, err := r.cache.Get(ctx, key, &place)
	if err != nil {
		r.logger.Warn("geocode cache read failed", slog.String("key", key), slog.Any("error", err))
	}
	if found {
		r.record("hit")
		return place, nil
	}

	place, err = r.next.Reverse(ctx, lat, lng)
	if err != nil {
		r.record("error")
		return Place{}, err
	}
	r.record("miss")
	if err := r.cache.Set(ctx, key, place); err != nil {
		r.logger.Warn("geocode cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return place, nil
}

func (r *CachedResolver) record(result string) {
	if r.metrics != nil {
		r.metrics.RecordGeocode(result)
	}
}

// CacheKey rounds both coordinates to 4 decimals.
func CacheKey(lat, lng float64) string {
	round := func(v float64) float64 { return math.Round(v*1e4) / 1e4 }
	return fmt.Sprintf("%.4f,%.4f", round(lat), round(lng))
}

// Lookup resolves coordinates without failing the caller: errors are logged
// and an empty Place is returned.
func Lookup(ctx context.Context, r Resolver, lat, lng float64, logger *slog.Logger) Place {
	if r == nil {
		return Place{}
	}
	place, err := r.Reverse(ctx, lat, lng)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("reverse geocoding failed",
			slog.Float64("lat", lat),
			slog.Float64("lng", lng),
			slog.Any("error", err),
		)
		return Place{}
	}
	return place
}
