// Package nominatim is the bulk geocoding backend over the OpenStreetMap
// Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/providers"
)

const (
	ProviderID      = "nominatim"
	DefaultBaseURL  = "https://nominatim.openstreetmap.org"
	defaultLimit    = 5
	defaultTimeout  = 10 * time.Second
	defaultAgent    = "violations-tracker-geocoder/1.0"
	maxResponseSize = 1 << 20
)

// Config configures the adapter. Zero values fall back to defaults.
type Config struct {
	BaseURL   string
	UserAgent string
	// CountryCodes restricts results (comma-separated ISO 3166-1 alpha-2).
	CountryCodes string
	Limit        int
	Timeout      time.Duration
}

// Provider implements providers.BulkGeocoder.
type Provider struct {
	baseURL      string
	userAgent    string
	countryCodes string
	limit        int
	httpClient   *http.Client
	log          *slog.Logger
}

func NewProvider(cfg Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:    cfg.UserAgent,
		countryCodes: cfg.CountryCodes,
		limit:        cfg.Limit,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		log:          logger.With("adapter", ProviderID),
	}
	if p.baseURL == "" {
		p.baseURL = DefaultBaseURL
	}
	if p.userAgent == "" {
		p.userAgent = defaultAgent
	}
	if p.limit <= 0 {
		p.limit = defaultLimit
	}
	if cfg.Timeout <= 0 {
		p.httpClient.Timeout = defaultTimeout
	}
	return p
}

func (p *Provider) ID() string { return ProviderID }

// Geocode runs one search. No match is an empty slice and a nil error.
func (p *Provider) Geocode(ctx context.Context, query string, lang models.Language) ([]models.Place, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(p.limit))
	params.Set("accept-language", acceptLanguage(lang))
	if p.countryCodes != "" {
		params.Set("countrycodes", p.countryCodes)
	}
	reqURL := p.baseURL + "/search?" + params.Encode()

	p.log.DebugContext(ctx, "nominatim request", slog.String("query", query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, ProviderID, "create request", err)
	}
	// Nominatim's usage policy requires an identifying agent
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.log.WarnContext(ctx, "nominatim request failed", slog.String("query", query), slog.String("error", err.Error()))
		return nil, providers.ClassifyRequestError(ProviderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providers.ClassifyStatus(ProviderID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, providers.ClassifyRequestError(ProviderID, err)
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, ProviderID, "decode json", err)
	}

	places := make([]models.Place, 0, len(results))
	for _, r := range results {
		place, err := r.toPlace()
		if err != nil {
			p.log.DebugContext(ctx, "nominatim result skipped", slog.String("error", err.Error()))
			continue
		}
		places = append(places, place)
	}

	p.log.DebugContext(ctx, "nominatim response",
		slog.String("query", query),
		slog.Int("results", len(places)),
	)
	return places, nil
}

func acceptLanguage(lang models.Language) string {
	switch lang {
	case models.LanguageArabic:
		return "ar"
	case models.LanguageMixed:
		return "ar,en"
	default:
		return "en"
	}
}

type searchResult struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Address     address `json:"address"`
}

type address struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	Suburb      string `json:"suburb"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	State       string `json:"state"`
	Province    string `json:"province"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

func (r searchResult) toPlace() (models.Place, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return models.Place{}, fmt.Errorf("parse lat %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return models.Place{}, fmt.Errorf("parse lon %q: %w", r.Lon, err)
	}

	street := r.Address.Road
	if street != "" && r.Address.HouseNumber != "" {
		street = r.Address.HouseNumber + " " + street
	}

	return models.Place{
		Coordinates:      models.Coordinates{Latitude: lat, Longitude: lon},
		FormattedAddress: r.DisplayName,
		Country:          r.Address.Country,
		City:             firstNonEmpty(r.Address.City, r.Address.Town, r.Address.Village),
		State:            firstNonEmpty(r.Address.State, r.Address.Province),
		Street:           street,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
