package tools

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smart-assistant/internal/state"
)

// DefaultWeatherBaseURL serves plain-text temperature snippets
const DefaultWeatherBaseURL = "https://wttr.in"

// WeatherClient fetches the current temperature for one city
type WeatherClient struct {
	baseURL    string
	city       string
	httpClient *http.Client
}

// NewWeatherClient creates a weather client for the given city
func NewWeatherClient(baseURL, city string) *WeatherClient {
	if baseURL == "" {
		baseURL = DefaultWeatherBaseURL
	}

	return &WeatherClient{
		baseURL: baseURL,
		city:    city,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchBackground looks the temperature up in the background and writes
// the result into shared state. Fire and forget: a failed lookup leaves
// a sentinel string, never an error.
func (w *WeatherClient) FetchBackground(st *state.State) {
	go func() {
		st.SetCurrentTemp(w.fetch())
	}()
}

func (w *WeatherClient) fetch() string {
	resp, err := w.httpClient.Get(fmt.Sprintf("%s/%s?format=%%t", w.baseURL, url.PathEscape(w.city)))
	if err != nil {
		return "Offline"
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "N/A"
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "Offline"
	}

	temp := strings.ReplaceAll(strings.TrimSpace(string(body)), "+", "")
	return fmt.Sprintf("%s in %s", temp, w.city)
}
