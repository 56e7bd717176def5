// Package websearch provides the web search client used as the last
// resort for company domain discovery.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crmbridge_backend/platform/apperr"
	"crmbridge_backend/platform/config"
	"crmbridge_backend/platform/logger"
)

// Result is a single web search hit.
type Result struct {
	URL   string
	Title string
}

// Client queries the search API. A zero API key disables the client;
// Search then returns no results without calling out.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        *logger.Logger
}

// NewClient creates a search client from configuration.
func NewClient(cfg config.WebSearchConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(cfg.GetSearchBaseURL(), "/"),
		apiKey:     cfg.GetSearchAPIKey(),
		log:        log,
	}
}

type searchResponse struct {
	Web struct {
		Results []struct {
			URL   string `json:"url"`
			Title string `json:"title"`
		} `json:"results"`
	} `json:"web"`
}

// Search runs a web query and returns up to five results.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	u := fmt.Sprintf("%s/web/search?q=%s&count=5", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Upstream("websearch", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Upstream("websearch", err)
	}
	if resp.StatusCode >= 400 {
		return nil, apperr.Upstream("websearch", fmt.Errorf("search: status %d", resp.StatusCode))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperr.Upstream("websearch", err)
	}

	results := make([]Result, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		results = append(results, Result{URL: r.URL, Title: r.Title})
	}
	return results, nil
}
