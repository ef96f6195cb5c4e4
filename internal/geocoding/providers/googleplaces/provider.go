// Package googleplaces is the premium geocoding backend over the Google Places
// API: a text search for a place ID followed by a details lookup.
package googleplaces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/providers"
)

const (
	ProviderID      = "googleplaces"
	DefaultBaseURL  = "https://maps.googleapis.com/maps/api/place"
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20
	detailFields    = "geometry,formatted_address,address_component"
)

// Google status values shared by both endpoints.
const (
	statusOK             = "OK"
	statusZeroResults    = "ZERO_RESULTS"
	statusNotFound       = "NOT_FOUND"
	statusOverQueryLimit = "OVER_QUERY_LIMIT"
	statusRequestDenied  = "REQUEST_DENIED"
	statusInvalidRequest = "INVALID_REQUEST"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Provider implements providers.PremiumGeocoder.
type Provider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

func NewProvider(cfg Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.With("adapter", ProviderID),
	}
	if p.baseURL == "" {
		p.baseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		p.httpClient.Timeout = defaultTimeout
	}
	return p
}

func (p *Provider) ID() string { return ProviderID }

// FindPlace returns the first candidate's place ID, or "" on ZERO_RESULTS.
func (p *Provider) FindPlace(ctx context.Context, query string, bias models.BoundingBox, lang models.Language) (string, error) {
	params := url.Values{}
	params.Set("input", query)
	params.Set("inputtype", "textquery")
	params.Set("fields", "place_id")
	params.Set("locationbias", fmt.Sprintf("rectangle:%g,%g|%g,%g",
		bias.MinLatitude, bias.MinLongitude, bias.MaxLatitude, bias.MaxLongitude))
	params.Set("language", language(lang))

	var resp findPlaceResponse
	if err := p.get(ctx, "/findplacefromtext/json", params, &resp); err != nil {
		return "", err
	}

	switch resp.Status {
	case statusOK:
	case statusZeroResults:
		return "", nil
	default:
		return "", classifyStatus(resp.Status, resp.ErrorMessage)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].PlaceID == "" {
		return "", nil
	}
	return resp.Candidates[0].PlaceID, nil
}

// PlaceDetails fetches geometry and address components of placeID.
func (p *Provider) PlaceDetails(ctx context.Context, placeID string, lang models.Language) (*providers.PlaceDetails, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailFields)
	params.Set("language", language(lang))

	var resp detailsResponse
	if err := p.get(ctx, "/details/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != statusOK {
		return nil, classifyStatus(resp.Status, resp.ErrorMessage)
	}
	if resp.Result.Geometry == nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, ProviderID, "details without geometry", nil)
	}

	details := &providers.PlaceDetails{
		PlaceID: placeID,
		Place: models.Place{
			Coordinates: models.Coordinates{
				Latitude:  resp.Result.Geometry.Location.Lat,
				Longitude: resp.Result.Geometry.Location.Lng,
			},
			FormattedAddress: resp.Result.FormattedAddress,
		},
	}
	var number, route string
	for _, c := range resp.Result.AddressComponents {
		switch {
		case c.has("country"):
			details.Country = c.LongName
		case c.has("locality"):
			details.City = c.LongName
		case c.has("administrative_area_level_1"):
			details.State = c.LongName
		case c.has("route"):
			route = c.LongName
		case c.has("street_number"):
			number = c.LongName
		}
	}
	details.Street = strings.TrimSpace(number + " " + route)
	return details, nil
}

func (p *Provider) get(ctx context.Context, path string, params url.Values, out any) error {
	p.log.DebugContext(ctx, "googleplaces request", slog.String("endpoint", path))

	params.Set("key", p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return providers.NewProviderError(providers.ErrorInternal, ProviderID, "create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// the request URL carries the API key; log the endpoint only
		p.log.WarnContext(ctx, "googleplaces request failed", slog.String("endpoint", path))
		return providers.ClassifyRequestError(ProviderID, stripURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return providers.ClassifyStatus(ProviderID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return providers.ClassifyRequestError(ProviderID, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return providers.NewProviderError(providers.ErrorBadData, ProviderID, "decode json", err)
	}
	return nil
}

// stripURL drops the *url.Error wrapper so the key never reaches an error
// message.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}

func classifyStatus(status, message string) *providers.ProviderError {
	msg := "status " + status
	if message != "" {
		msg += ": " + message
	}
	switch status {
	case statusNotFound, statusZeroResults:
		return providers.NewProviderError(providers.ErrorNotFound, ProviderID, msg, nil)
	case statusOverQueryLimit:
		return providers.NewProviderError(providers.ErrorRateLimited, ProviderID, msg, nil)
	case statusRequestDenied:
		return providers.NewProviderError(providers.ErrorAuthentication, ProviderID, msg, nil)
	case statusInvalidRequest:
		return providers.NewProviderError(providers.ErrorBadData, ProviderID, msg, nil)
	default:
		return providers.NewProviderError(providers.ErrorProviderOutage, ProviderID, msg, nil)
	}
}

func language(lang models.Language) string {
	if lang == models.LanguageArabic {
		return "ar"
	}
	return "en"
}

type findPlaceResponse struct {
	Candidates []struct {
		PlaceID string `json:"place_id"`
	} `json:"candidates"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type detailsResponse struct {
	Result struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         *struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		AddressComponents []addressComponent `json:"address_components"`
	} `json:"result"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

func (c addressComponent) has(kind string) bool {
	return slices.Contains(c.Types, kind)
}
