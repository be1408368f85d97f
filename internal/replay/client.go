package replay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

const headerUserID = "X-User-ID"

// envelope mirrors the tracker's response wrapper.
type envelope struct {
	Success     bool            `json:"success"`
	Description string          `json:"description"`
	Body        json.RawMessage `json:"body"`
}

// client is a thin JSON client for the tracker API.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, c *http.Client) *client {
	return &client{baseURL: baseURL, http: c}
}

// do sends a request and decodes the envelope body into out when out is non-nil.
// It returns the HTTP status alongside any error.
func (c *client) do(ctx context.Context, method, path, userID string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(headerUserID, userID)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		var env envelope
		_ = json.Unmarshal(raw, &env)
		return res.StatusCode, fmt.Errorf("%w %d on %s %s: %s", ErrStatus, res.StatusCode, method, path, env.Description)
	}
	if out == nil {
		return res.StatusCode, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return res.StatusCode, fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.Body) == 0 {
		return res.StatusCode, nil
	}
	if err := json.Unmarshal(env.Body, out); err != nil {
		return res.StatusCode, fmt.Errorf("decode body: %w", err)
	}
	return res.StatusCode, nil
}
