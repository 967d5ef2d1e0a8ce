// Package notion implements service.Source using the Notion REST API.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"notioncal/internal/config"
	"notioncal/internal/service"
)

const (
	// PageSize is the number of records requested per query page.
	PageSize = 100

	// APITimeout is the timeout for a single API call.
	APITimeout = 30 * time.Second

	serviceName = "notion"
)

// Client implements service.Source against the Notion API.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	version string
	schema  Schema
}

// New creates a Notion client from configuration.
func New(cfg config.NotionConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("notion token is not set")
	}
	return NewWithHTTPClient(&http.Client{}, cfg), nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(httpClient *http.Client, cfg config.NotionConfig) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		version: cfg.Version,
		schema:  SchemaFromConfig(cfg.Prop),
	}
}

// DataSourceID retrieves the database and returns its first data source.
func (c *Client) DataSourceID(ctx context.Context, databaseID string) (string, error) {
	var db database
	if err := c.do(ctx, http.MethodGet, "/v1/databases/"+url.PathEscape(databaseID), nil, &db); err != nil {
		return "", err
	}
	if len(db.DataSources) == 0 || db.DataSources[0].ID == "" {
		return "", service.ErrNoDataSource
	}
	return db.DataSources[0].ID, nil
}

// Query returns the pages of a data source, following pagination.
// A non-zero since adds a last_edited_time on_or_after filter.
func (c *Client) Query(ctx context.Context, dataSourceID string, since time.Time) ([]service.Record, error) {
	req := queryRequest{PageSize: PageSize}
	if !since.IsZero() {
		req.Filter = &timestampFilter{
			Timestamp:      "last_edited_time",
			LastEditedTime: dateCondition{OnOrAfter: since.UTC().Format(time.RFC3339)},
		}
	}

	path := "/v1/data_sources/" + url.PathEscape(dataSourceID) + "/query"

	var records []service.Record
	for {
		var resp queryResponse
		if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Results {
			if p.Object != "" && p.Object != "page" {
				continue
			}
			records = append(records, p.record(c.schema))
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		req.StartCursor = resp.NextCursor
	}

	return records, nil
}

// SetEventID writes eventID into the correspondence property of a page.
// An empty eventID clears the property.
func (c *Client) SetEventID(ctx context.Context, pageID, eventID string) error {
	value := []richTextInput{}
	if eventID != "" {
		value = append(value, richTextInput{Type: "text", Text: textContent{Content: eventID}})
	}

	body := pageUpdate{Properties: map[string]richTextProperty{
		c.schema.EventID: {RichText: value},
	}}
	return c.do(ctx, http.MethodPatch, "/v1/pages/"+url.PathEscape(pageID), body, nil)
}

// do sends a JSON request and decodes the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return apiError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// apiError converts a Notion error body into a service.APIError.
func apiError(status int, body []byte) error {
	apiErr := &service.APIError{
		Service: serviceName,
		Code:    status,
		Body:    string(body),
	}
	var e errorBody
	if err := json.Unmarshal(body, &e); err == nil {
		apiErr.Reason = e.Code
		apiErr.Message = e.Message
	}
	return apiErr
}

// wrapError wraps transport errors with user-friendly messages.
func wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("notion request timed out: %w", err)
	}
	return fmt.Errorf("notion request failed: %w", err)
}
