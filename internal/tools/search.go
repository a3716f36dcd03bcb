package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/soyeahso/matrix/internal/logging"
	"github.com/soyeahso/matrix/internal/version"
)

// SearchEntry is one organic search result.
type SearchEntry struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// RelatedQuestion is a "people also ask" entry.
type RelatedQuestion struct {
	Question string `json:"question"`
	Snippet  string `json:"snippet,omitempty"`
	Title    string `json:"title,omitempty"`
	Link     string `json:"link,omitempty"`
}

// SearchResult is the observation returned by a web search.
type SearchResult struct {
	Results       []SearchEntry     `json:"results"`
	PeopleAlsoAsk []RelatedQuestion `json:"peopleAlsoAsk"`
}

// SearchConfig configures the Serper web search client.
type SearchConfig struct {
	Endpoint   string
	APIKey     string
	Num        int
	HTTPClient *http.Client
}

// WebSearch queries Google through the Serper API.
type WebSearch struct {
	cfg    SearchConfig
	client *http.Client
	log    *logging.Logger
}

// NewWebSearch creates a search client.
func NewWebSearch(cfg SearchConfig, log *logging.Logger) *WebSearch {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Num <= 0 {
		cfg.Num = 5
	}
	return &WebSearch{cfg: cfg, client: client, log: log.Sub("tools.search")}
}

type serperRequest struct {
	Q   string `json:"q"`
	GL  string `json:"gl,omitempty"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic       []SearchEntry     `json:"organic"`
	PeopleAlsoAsk []RelatedQuestion `json:"peopleAlsoAsk"`
}

// Search runs query for the given country code.
func (s *WebSearch) Search(ctx context.Context, query, country string) (*SearchResult, error) {
	body, err := json.Marshal(serperRequest{Q: query, GL: country, Num: s.cfg.Num})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.cfg.APIKey)
	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API error %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var sr serperResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	out := &SearchResult{Results: sr.Organic, PeopleAlsoAsk: sr.PeopleAlsoAsk}
	if out.Results == nil {
		out.Results = []SearchEntry{}
	}
	if out.PeopleAlsoAsk == nil {
		out.PeopleAlsoAsk = []RelatedQuestion{}
	}

	s.log.Debug().
		Str("query", query).
		Int("results", len(out.Results)).
		Dur("duration", time.Since(start)).
		Msg("search complete")
	return out, nil
}
