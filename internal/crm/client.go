// Package crm provides the typed client for the source CRM's REST API.
// All payload normalization (wrapped related ids, labeled value lists,
// custom field keys) happens here so callers work with plain structs.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"crmbridge_backend/platform/apperr"
	"crmbridge_backend/platform/config"
	"crmbridge_backend/platform/logger"

	"golang.org/x/time/rate"
)

// Client talks to the source CRM. It is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiToken     string
	langFieldKey string
	limiter      *rate.Limiter
	log          *logger.Logger
}

// NewClient creates a CRM client from configuration.
func NewClient(cfg config.CRMConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: cfg.GetCRMTimeout()},
		baseURL:      strings.TrimRight(cfg.GetCRMBaseURL(), "/"),
		apiToken:     cfg.GetCRMAPIToken(),
		langFieldKey: cfg.GetCRMLanguageFieldKey(),
		// The CRM throttles aggressively; 4 req/s with a small burst
		// keeps webhook storms under its limit.
		limiter: rate.NewLimiter(rate.Limit(4), 8),
		log:     log,
	}
}

// envelope is the CRM's standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if strings.Contains(u, "?") {
		u += "&api_token=" + url.QueryEscape(c.apiToken)
	} else {
		u += "?api_token=" + url.QueryEscape(c.apiToken)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Upstream("crm", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Upstream("crm", err)
	}
	if resp.StatusCode >= 400 {
		return nil, apperr.Upstream("crm", fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, truncate(raw, 200)))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, apperr.Upstream("crm", err)
	}
	if !env.Success {
		return nil, apperr.Upstream("crm", fmt.Errorf("%s %s: %s", method, path, env.Error))
	}

	return env.Data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// decodeWithLanguage unmarshals data into v, then pulls the configured
// custom language field (the CRM stores it under an opaque hash key) into
// the provided target.
func (c *Client) decodeWithLanguage(data json.RawMessage, v any, language *string) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	if c.langFieldKey == "" || language == nil {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	raw, ok := fields[c.langFieldKey]
	if !ok {
		return nil
	}
	var lang string
	if err := json.Unmarshal(raw, &lang); err == nil {
		*language = lang
	}
	return nil
}

// GetOrganization fetches an organization by id.
func (c *Client) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/organizations/%d", id), nil)
	if err != nil {
		return nil, err
	}
	var org Organization
	if err := c.decodeWithLanguage(data, &org, &org.Language); err != nil {
		return nil, err
	}
	return &org, nil
}

// GetPerson fetches a person by id.
func (c *Client) GetPerson(ctx context.Context, id int64) (*Person, error) {
	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/persons/%d", id), nil)
	if err != nil {
		return nil, err
	}
	var p Person
	if err := c.decodeWithLanguage(data, &p, &p.Language); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetDeal fetches a deal by id.
func (c *Client) GetDeal(ctx context.Context, id int64) (*Deal, error) {
	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/deals/%d", id), nil)
	if err != nil {
		return nil, err
	}
	var d Deal
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateContact creates a new person and returns its id.
func (c *Client) CreateContact(ctx context.Context, nc NewContact) (int64, error) {
	body := map[string]any{"name": nc.Name}
	if nc.OrgID > 0 {
		body["org_id"] = nc.OrgID
	}
	if nc.OwnerID > 0 {
		body["owner_id"] = nc.OwnerID
	}
	if nc.Email != "" {
		body["email"] = []ContactValue{{Value: nc.Email, Primary: true, Label: "work"}}
	}
	if nc.Phone != "" {
		body["phone"] = []ContactValue{{Value: nc.Phone, Primary: true, Label: "mobile"}}
	}
	if nc.JobTitle != "" {
		body["job_title"] = nc.JobTitle
	}

	data, err := c.do(ctx, http.MethodPost, "/persons", body)
	if err != nil {
		return 0, err
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// UpdateContact applies a partial update to a person. A fully empty update
// is a no-op.
func (c *Client) UpdateContact(ctx context.Context, personID int64, upd ContactUpdate) error {
	body := map[string]any{}
	if upd.Email != "" {
		body["email"] = []ContactValue{{Value: upd.Email, Primary: true, Label: "work"}}
	}
	if upd.Phone != "" {
		body["phone"] = []ContactValue{{Value: upd.Phone, Primary: true, Label: "mobile"}}
	}
	if upd.JobTitle != "" {
		body["job_title"] = upd.JobTitle
	}
	if len(body) == 0 {
		return nil
	}

	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/persons/%d", personID), body)
	return err
}

// LinkContactToDeal sets the deal's primary person.
func (c *Client) LinkContactToDeal(ctx context.Context, dealID, personID int64) error {
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/deals/%d", dealID), map[string]any{"person_id": personID})
	return err
}

// UpdateOrganizationWebsite stores a discovered domain on the organization.
func (c *Client) UpdateOrganizationWebsite(ctx context.Context, orgID int64, website string) error {
	if website == "" {
		return nil
	}
	if !strings.HasPrefix(website, "http") {
		website = "https://" + website
	}
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/organizations/%d", orgID), map[string]any{"website": website})
	return err
}

// AddDealNote attaches a note to a deal.
func (c *Client) AddDealNote(ctx context.Context, dealID int64, content string) error {
	_, err := c.do(ctx, http.MethodPost, "/notes", map[string]any{
		"deal_id": dealID,
		"content": content,
	})
	return err
}
