// Package enrichment integrates the async contact enrichment provider:
// requesting enrichments, searching people, and correlating the
// provider's completion callbacks back to deals.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"crmbridge_backend/internal/icp"
	"crmbridge_backend/platform/apperr"
	"crmbridge_backend/platform/config"
	"crmbridge_backend/platform/logger"
)

// EnrichHints identifies the person to enrich.
type EnrichHints struct {
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	CompanyName   string `json:"companyName,omitempty"`
	CompanyDomain string `json:"companyDomain,omitempty"`
	LinkedInURL   string `json:"linkedInUrl,omitempty"`
	ExternalID    string `json:"externalID,omitempty"`
}

// Client calls the enrichment provider's API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	webhookURL string
	log        *logger.Logger
}

// NewClient creates an enrichment client from configuration.
func NewClient(cfg config.EnrichmentConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.GetEnrichmentTimeout()},
		baseURL:    strings.TrimRight(cfg.GetEnrichmentBaseURL(), "/"),
		apiKey:     cfg.GetEnrichmentAPIKey(),
		webhookURL: cfg.GetEnrichmentWebhookURL(),
		log:        log,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Upstream("enrichment", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Upstream("enrichment", err)
	}
	if resp.StatusCode >= 400 {
		return apperr.Upstream("enrichment", fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return apperr.Upstream("enrichment", err)
		}
	}
	return nil
}

// EnrichPerson requests an async enrichment. The provider delivers the
// result to the configured webhook; the returned id correlates the
// callback with the request.
func (c *Client) EnrichPerson(ctx context.Context, hints EnrichHints) (string, error) {
	body := map[string]any{
		"include": map[string]any{
			"email":       true,
			"mobile":      true,
			"jobHistory":  false,
			"linkedInUrl": true,
		},
		"people": []EnrichHints{hints},
	}
	if c.webhookURL != "" {
		body["notificationOptions"] = map[string]any{"webhookUrl": c.webhookURL}
	}

	var out struct {
		EnrichmentID string `json:"enrichmentID"`
		ID           string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/people/enrich", body, &out); err != nil {
		return "", err
	}
	if out.EnrichmentID != "" {
		return out.EnrichmentID, nil
	}
	if out.ID != "" {
		return out.ID, nil
	}
	return "", apperr.Upstream("enrichment", fmt.Errorf("enrich response carried no id"))
}

// SearchPeople finds candidate contacts at a company domain, optionally
// narrowed by job titles.
func (c *Client) SearchPeople(ctx context.Context, domain string, jobTitles []string) ([]icp.Person, error) {
	people := map[string]any{}
	if len(jobTitles) > 0 {
		people["jobTitles"] = jobTitles
	}
	body := map[string]any{
		"companies": map[string]any{"domains": []string{domain}},
		"people":    people,
		"limit":     10,
	}

	var out struct {
		People []icp.Person `json:"people"`
	}
	if err := c.do(ctx, http.MethodPost, "/people/search", body, &out); err != nil {
		return nil, err
	}
	return out.People, nil
}
