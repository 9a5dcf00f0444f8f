package provider

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// maxBody caps provider responses.
const maxBody = 8 << 20

// NewHTTPClient returns a keep-alive client shared by all providers.
// Per-call deadlines come from the request context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        16,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: timeout,
	}
}

// statusError is a non-2xx response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("status %d", e.code)
	}
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// getJSON performs a GET and decodes the JSON body into out.
// Non-2xx responses with a JSON body are still decoded when decodeErrors is set,
// so callers can inspect provider specific error codes.
func getJSON(ctx context.Context, client *http.Client, url, userAgent string, out any, decodeErrors bool) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	log.Trace().
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Provider request done")

	body := io.LimitReader(resp.Body, maxBody)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok && !decodeErrors {
		snippet, _ := io.ReadAll(io.LimitReader(body, 256))
		return resp.StatusCode, &statusError{code: resp.StatusCode, body: string(snippet)}
	}

	if err := json.NewDecoder(body).Decode(out); err != nil {
		if !ok {
			return resp.StatusCode, &statusError{code: resp.StatusCode}
		}
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}

	return resp.StatusCode, nil
}
