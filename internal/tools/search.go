package tools

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultSearchBaseURL is the Serper search endpoint
const DefaultSearchBaseURL = "https://google.serper.dev"

// searchRequest is the JSON body of a search call
type searchRequest struct {
	Query   string `json:"q"`
	Country string `json:"gl"`
}

// SearchClient answers web-search queries with the first organic
// result's snippet
type SearchClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewSearchClient creates a search client. An empty API key leaves the
// client in a degraded mode that reports the missing key.
func NewSearchClient(apiKey, baseURL string) *SearchClient {
	if baseURL == "" {
		baseURL = DefaultSearchBaseURL
	}

	return &SearchClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Search runs the query and returns a short spoken-friendly snippet.
// Every failure maps to a sentinel string the assistant can read aloud.
func (s *SearchClient) Search(query string) string {
	if s.apiKey == "" {
		return "API Key missing."
	}

	reqBody, err := json.Marshal(searchRequest{Query: query, Country: "us"})
	if err != nil {
		return "Connection error."
	}

	req, err := http.NewRequest("POST", s.baseURL+"/search", bytes.NewReader(reqBody))
	if err != nil {
		return "Connection error."
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "Connection error."
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "Connection error."
	}

	if !gjson.GetBytes(body, "organic").Exists() {
		return "No results."
	}

	snippet := gjson.GetBytes(body, "organic.0.snippet")
	if !snippet.Exists() {
		return "No results."
	}
	return snippet.String()
}
