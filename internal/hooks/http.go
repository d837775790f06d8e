package hooks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpClient is the production HTTPClient: a plain net/http.Client POSTing
// JSON to a hook's configured URL. No third-party webhook-delivery library
// appears in the example pack for this (DESIGN.md §4.G), so net/http is
// used directly.
type httpClient struct {
	client *http.Client
}

// NewHTTPClient builds the default hooks.HTTPClient with a bounded timeout
// per hook call.
func NewHTTPClient(timeout time.Duration) HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpClient{client: &http.Client{Timeout: timeout}}
}

func (c *httpClient) Do(ctx context.Context, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("hooks: http hook returned status %d", resp.StatusCode)
	}
	return body, nil
}
