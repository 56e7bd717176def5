// Package erp provides the JSON-RPC client for the destination ERP system.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"crmbridge_backend/platform/apperr"
	"crmbridge_backend/platform/config"
	"crmbridge_backend/platform/logger"
)

// Cond is a single search condition, serialized as the ERP's
// [field, operator, value] triple.
type Cond struct {
	Field string
	Op    string
	Value any
}

// Eq builds an equality condition.
func Eq(field string, value any) Cond { return Cond{Field: field, Op: "=", Value: value} }

// In builds a set-membership condition.
func In(field string, values ...any) Cond { return Cond{Field: field, Op: "in", Value: values} }

func (c Cond) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Field, c.Op, c.Value})
}

// Client talks to the ERP's JSON-RPC endpoint. The session uid obtained
// from Login is cached and reused; a failed call never retries in-process.
type Client struct {
	httpClient *http.Client
	url        string
	database   string
	user       string
	apiKey     string
	log        *logger.Logger

	mu  sync.Mutex
	uid int64
}

// NewClient creates an ERP client from configuration.
func NewClient(cfg config.ERPConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.GetERPTimeout()},
		url:        cfg.GetERPURL(),
		database:   cfg.GetERPDatabase(),
		user:       cfg.GetERPUser(),
		apiKey:     cfg.GetERPAPIKey(),
		log:        log,
	}
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int       `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

func (c *Client) rpc(ctx context.Context, params rpcParams) (json.RawMessage, error) {
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: "call", Params: params, ID: 1})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/jsonrpc", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Upstream("erp", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Upstream("erp", err)
	}
	if resp.StatusCode >= 400 {
		return nil, apperr.Upstream("erp", fmt.Errorf("jsonrpc: status %d", resp.StatusCode))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, apperr.Upstream("erp", err)
	}
	if len(rpcResp.Error) > 0 && string(rpcResp.Error) != "null" {
		return nil, apperr.Upstream("erp", fmt.Errorf("jsonrpc error: %s", rpcResp.Error))
	}

	return rpcResp.Result, nil
}

// Login authenticates against the ERP and caches the session uid.
// Returns the uid so health checks can surface it.
func (c *Client) Login(ctx context.Context) (int64, error) {
	result, err := c.rpc(ctx, rpcParams{
		Service: "common",
		Method:  "login",
		Args:    []any{c.database, c.user, c.apiKey},
	})
	if err != nil {
		return 0, err
	}

	var uid int64
	if err := json.Unmarshal(result, &uid); err != nil || uid <= 0 {
		return 0, apperr.Upstream("erp", fmt.Errorf("login returned invalid uid: %s", result))
	}

	c.mu.Lock()
	c.uid = uid
	c.mu.Unlock()
	return uid, nil
}

// session returns the cached uid, logging in on first use.
func (c *Client) session(ctx context.Context) (int64, error) {
	c.mu.Lock()
	uid := c.uid
	c.mu.Unlock()
	if uid > 0 {
		return uid, nil
	}
	return c.Login(ctx)
}

func (c *Client) execute(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	uid, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return c.rpc(ctx, rpcParams{
		Service: "object",
		Method:  "execute_kw",
		Args:    []any{c.database, uid, c.apiKey, model, method, args, kwargs},
	})
}

// Search returns ids of records matching the conditions.
func (c *Client) Search(ctx context.Context, model string, conds []Cond, limit int) ([]int64, error) {
	result, err := c.execute(ctx, model, "search", []any{conds}, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	var ids []int64
	if err := json.Unmarshal(result, &ids); err != nil {
		return nil, apperr.Upstream("erp", err)
	}
	return ids, nil
}

// SearchRead returns matching rows restricted to the given fields.
func (c *Client) SearchRead(ctx context.Context, model string, conds []Cond, fields []string, limit int) ([]map[string]any, error) {
	if len(fields) == 0 {
		fields = []string{"id"}
	}
	result, err := c.execute(ctx, model, "search_read", []any{conds}, map[string]any{
		"fields": fields,
		"limit":  limit,
	})
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, apperr.Upstream("erp", err)
	}
	return rows, nil
}

// Create inserts a record and returns its id.
func (c *Client) Create(ctx context.Context, model string, vals map[string]any) (int64, error) {
	result, err := c.execute(ctx, model, "create", []any{vals}, nil)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := json.Unmarshal(result, &id); err != nil {
		return 0, apperr.Upstream("erp", err)
	}
	return id, nil
}

// Write updates a record in place.
func (c *Client) Write(ctx context.Context, model string, id int64, vals map[string]any) error {
	_, err := c.execute(ctx, model, "write", []any{[]int64{id}, vals}, nil)
	return err
}

// RowID extracts an integer id from a search_read row.
func RowID(row map[string]any) int64 {
	switch v := row["id"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	}
	return 0
}
