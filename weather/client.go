// Package weather is the thin client for the external current-weather
// service. The rest of the application depends only on the Fetcher
// interface, keeping the HTTP call-out replaceable in tests.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/user/cityweather-go/apperror"
	"github.com/user/cityweather-go/config"
)

// Fetcher returns the current temperature in Celsius for a coordinate pair,
// or an error when the upstream service cannot provide one.
type Fetcher interface {
	Fetch(ctx context.Context, latitude, longitude float64) (float64, error)
}

// Client fetches current weather from an Open-Meteo compatible endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewClient builds a Client with the configured request timeout.
func NewClient(cfg *config.WeatherConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// forecastResponse is the subset of the upstream payload we consume.
type forecastResponse struct {
	CurrentWeather *struct {
		Temperature float64 `json:"temperature"`
	} `json:"current_weather"`
}

// Fetch calls GET {base}/v1/forecast?latitude=..&longitude=..&current_weather=true
// and extracts the current temperature. Any transport failure, non-200
// status, or missing field is an upstream error.
func (c *Client) Fetch(ctx context.Context, latitude, longitude float64) (float64, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	query.Set("current_weather", "true")
	endpoint := fmt.Sprintf("%s/v1/forecast?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, apperror.NewInternalError("failed to build weather request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, apperror.NewUpstreamError("weather service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, apperror.NewUpstreamError(
			fmt.Sprintf("weather service returned status %d", resp.StatusCode), nil)
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, apperror.NewUpstreamError("failed to decode weather response", err)
	}
	if payload.CurrentWeather == nil {
		return 0, apperror.NewUpstreamError("weather response missing current_weather", nil)
	}

	c.log.Debug("fetched current weather",
		zap.Float64("latitude", latitude),
		zap.Float64("longitude", longitude),
		zap.Float64("temperature", payload.CurrentWeather.Temperature),
	)
	return payload.CurrentWeather.Temperature, nil
}
