package coze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bryanwahyu/geo-classifier/internal/domain/geo"
)

const (
	DefaultEndpoint = "https://yj5nbxrxq4.coze.site/stream_run"
	// DefaultProjectID is the project behind DefaultEndpoint.
	DefaultProjectID int64 = 7591518110268817449

	// maxBodySize caps how much of a response is buffered (10 MB).
	maxBodySize int64 = 10 * 1024 * 1024
	maxErrorBody      = 512
)

type Client struct {
	http      *http.Client
	Endpoint  string
	Token     string
	ProjectID int64
}

// NewClient builds a stream_run client.
func NewClient(endpoint, token string, projectID int64) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if projectID == 0 {
		projectID = DefaultProjectID
	}
	return &Client{
		http:      &http.Client{},
		Endpoint:  endpoint,
		Token:     token,
		ProjectID: projectID,
	}
}

type promptItem struct {
	Type    string `json:"type"`
	Content struct {
		Text string `json:"text"`
	} `json:"content"`
}

type queryRequest struct {
	Content struct {
		Query struct {
			Prompt []promptItem `json:"prompt"`
		} `json:"query"`
	} `json:"content"`
	Type      string `json:"type"`
	ProjectID int64  `json:"project_id"`
}

func newQueryRequest(text string, projectID int64) queryRequest {
	item := promptItem{Type: "text"}
	item.Content.Text = text

	var q queryRequest
	q.Content.Query.Prompt = []promptItem{item}
	q.Type = "query"
	q.ProjectID = projectID
	return q
}

// Answer implements geo.Inference.
func (c *Client) Answer(ctx context.Context, text string) (string, error) {
	raw, err := c.Stream(ctx, text)
	if err != nil {
		return "", err
	}
	return ExtractAnswer(raw)
}

// Stream posts the prompt and returns the full event-stream body once the
// server has finished sending it.
func (c *Client) Stream(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(newQueryRequest(text, c.ProjectID))
	if err != nil {
		return "", fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %w", geo.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", geo.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		kind := geo.ErrTransport
		if resp.StatusCode == http.StatusTooManyRequests {
			kind = geo.ErrQuotaExceeded
		}
		return "", fmt.Errorf("%w: API request failed: %s: %s",
			kind, resp.Status, strings.TrimSpace(string(snippet)))
	}

	// one byte past the cap tells a full body from a truncated one
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("%w: reading stream: %w", geo.ErrTransport, err)
	}
	if int64(len(data)) > maxBodySize {
		return "", fmt.Errorf("%w: response exceeds %d bytes", geo.ErrTransport, maxBodySize)
	}
	return string(data), nil
}
