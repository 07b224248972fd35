package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/inspiredanalyst/submanager-server/internal/models"
)

// Client talks to the spreadsheet-backed remote collaborator. The contract
// is whole-collection replace over a single endpoint: GET with an action
// query parameter for reads, POST with a JSON body for writes. The URL
// itself is the shared secret; no token is exchanged.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given endpoint URL. Requests time out
// after the given duration and are then treated as connectivity failures.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type sheetListPayload struct {
	Sheets []string `json:"sheets"`
}

type userListPayload struct {
	Users []map[string]interface{} `json:"users"`
}

type savePayload struct {
	Action    string                   `json:"action"`
	SheetName string                   `json:"sheetName"`
	Users     []map[string]interface{} `json:"users"`
	Headers   []string                 `json:"headers"`
	Keys      []string                 `json:"keys"`
}

// FetchSheetNames retrieves the list of sheet names known to the remote
// collaborator.
func (c *Client) FetchSheetNames(ctx context.Context) ([]string, error) {
	params := url.Values{"action": {"getSheets"}}

	var payload sheetListPayload
	if err := c.get(ctx, params, &payload); err != nil {
		return nil, fmt.Errorf("error fetching sheet names: %w", err)
	}
	return payload.Sheets, nil
}

// FetchRecords retrieves all records for a sheet, rebuilt under the given
// schema. Fields the remote added outside the schema are dropped.
func (c *Client) FetchRecords(ctx context.Context, sheetName string, schema models.Schema) ([]models.Record, error) {
	params := url.Values{
		"action": {"getUsers"},
		"sheet":  {sheetName},
	}

	var payload userListPayload
	if err := c.get(ctx, params, &payload); err != nil {
		return nil, fmt.Errorf("error fetching records for sheet %q: %w", sheetName, err)
	}

	records := make([]models.Record, 0, len(payload.Users))
	for _, user := range payload.Users {
		records = append(records, models.RecordFromFlat(user, schema))
	}
	return records, nil
}

// PushRecords sends the full record collection for a sheet, shaped per the
// schema. The headers/keys lists let the collaborator map record fields to
// spreadsheet columns positionally.
func (c *Client) PushRecords(ctx context.Context, sheetName string, records []models.Record, schema models.Schema) error {
	users := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		users = append(users, rec.Flatten(schema))
	}

	payload := savePayload{
		Action:    "saveData",
		SheetName: sheetName,
		Users:     users,
		Headers:   models.ColumnHeaders(schema),
		Keys:      models.ColumnKeys(schema),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error encoding save payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error building save request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error pushing records for sheet %q: %w", sheetName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("error pushing records for sheet %q: unexpected status %d", sheetName, resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}
