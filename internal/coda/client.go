// Package coda is the HTTP client for the Coda table-store API. It is both
// the vocabulary source (task types, categories, statuses live in Coda
// tables) and the persistence sink for assembled task records.
package coda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/hurttlocker/textask/internal/interpret"
)

const defaultBaseURL = "https://coda.io/apis/v1"

// minRequestGap keeps us inside Coda's rate limits (~6 req/sec).
const minRequestGap = 150 * time.Millisecond

// Config holds Coda API access and table layout.
type Config struct {
	APIKey            string            `yaml:"api_key"`
	DocID             string            `yaml:"doc_id"`
	TaskTableID       string            `yaml:"task_table_id"`
	TypesTableID      string            `yaml:"types_table_id"`
	CategoriesTableID string            `yaml:"categories_table_id"`
	StatusesTableID   string            `yaml:"statuses_table_id"`
	Columns           map[string]string `yaml:"columns"` // logical column name -> Coda column id
	BaseURL           string            `yaml:"base_url"`
}

// Validate checks the fields every call needs.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("coda: api_key is required")
	}
	if strings.TrimSpace(c.DocID) == "" {
		return fmt.Errorf("coda: doc_id is required")
	}
	if strings.TrimSpace(c.TaskTableID) == "" {
		return fmt.Errorf("coda: task_table_id is required")
	}
	return nil
}

// Client is a throttled Coda REST client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	mu         sync.Mutex
	lastReq    time.Time
}

// New builds a client. The config must pass Validate.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Row is one row of a Coda table; Name is the display column.
type Row struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type listRowsResponse struct {
	Items         []Row  `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

type insertRowsRequest struct {
	Rows []insertRow `json:"rows"`
}

type insertRow struct {
	Cells []cell `json:"cells"`
}

type cell struct {
	Column string `json:"column"`
	Value  any    `json:"value"`
}

type insertRowsResponse struct {
	RequestID   string   `json:"requestId"`
	AddedRowIDs []string `json:"addedRowIds"`
}

// Categories lists the category table as classification candidates.
func (c *Client) Categories(ctx context.Context) ([]interpret.CategoryCandidate, error) {
	if c.cfg.CategoriesTableID == "" {
		return nil, nil
	}
	rows, err := c.listRows(ctx, c.cfg.CategoriesTableID)
	if err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	out := make([]interpret.CategoryCandidate, 0, len(rows))
	for _, r := range rows {
		out = append(out, interpret.CategoryCandidate{Name: r.Name, ID: r.ID})
	}
	return out, nil
}

// Statuses lists the status table as a normalized-key -> display-label map.
// "⭐️ Today" becomes the key "today", "📅 This Week" becomes "this week".
func (c *Client) Statuses(ctx context.Context) (map[string]string, error) {
	if c.cfg.StatusesTableID == "" {
		return nil, nil
	}
	rows, err := c.listRows(ctx, c.cfg.StatusesTableID)
	if err != nil {
		return nil, fmt.Errorf("fetching statuses: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		key := statusKey(r.Name)
		if key == "" {
			continue
		}
		out[key] = r.Name
	}
	return out, nil
}

// TaskTypes lists the type table names.
func (c *Client) TaskTypes(ctx context.Context) ([]string, error) {
	if c.cfg.TypesTableID == "" {
		return nil, nil
	}
	rows, err := c.listRows(ctx, c.cfg.TypesTableID)
	if err != nil {
		return nil, fmt.Errorf("fetching task types: %w", err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out, nil
}

// CreateRecord inserts an assembled task record into the task table and
// returns the new row id. A sink rejection is a hard failure for the
// caller; no retries happen here.
func (c *Client) CreateRecord(ctx context.Context, record interpret.TaskRecord) (string, error) {
	cells := make([]cell, 0, len(record.Fields))
	for _, f := range record.Fields {
		cells = append(cells, cell{Column: c.columnID(f.Column), Value: f.Value})
	}

	var resp insertRowsResponse
	path := fmt.Sprintf("/docs/%s/tables/%s/rows", c.cfg.DocID, c.cfg.TaskTableID)
	err := c.doJSON(ctx, http.MethodPost, path, nil, insertRowsRequest{Rows: []insertRow{{Cells: cells}}}, &resp)
	if err != nil {
		return "", fmt.Errorf("creating task row: %w", err)
	}
	if len(resp.AddedRowIDs) > 0 {
		return resp.AddedRowIDs[0], nil
	}
	return resp.RequestID, nil
}

// columnID maps a logical column name to its Coda column id, falling back
// to the name itself (Coda accepts column names in cell payloads).
func (c *Client) columnID(name string) string {
	if id, ok := c.cfg.Columns[name]; ok && id != "" {
		return id
	}
	return name
}

func (c *Client) listRows(ctx context.Context, tableID string) ([]Row, error) {
	var all []Row
	pageToken := ""
	for {
		query := url.Values{}
		query.Set("limit", "100")
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		var resp listRowsResponse
		path := fmt.Sprintf("/docs/%s/tables/%s/rows", c.cfg.DocID, tableID)
		if err := c.doJSON(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Items...)
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return all, nil
}

func (c *Client) throttle() {
	if minRequestGap <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if !c.lastReq.IsZero() {
		delta := now.Sub(c.lastReq)
		if delta < minRequestGap {
			time.Sleep(minRequestGap - delta)
		}
	}
	c.lastReq = time.Now()
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, payload any, out any) error {
	c.throttle()

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("coda API %s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusKey lowercases a status label and keeps letters and single spaces,
// dropping emoji and punctuation.
func statusKey(label string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
