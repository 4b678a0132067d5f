// Package httpapi provides the JSON-over-HTTP adapter for the remote data
// service. Responses map onto the transient/permanent split the drainer
// needs: 5xx and transport failures are retryable, 4xx are not.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jbctechsolutions/syncbridge/internal/application/ports"
	"github.com/jbctechsolutions/syncbridge/internal/domain/errors"
	"github.com/jbctechsolutions/syncbridge/internal/infrastructure/logging"
)

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client handles HTTP communication with the remote data service.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *logging.Logger
}

// NewClient creates a new remote API client.
func NewClient(config Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
		logger: logger,
	}
}

// Do performs one JSON request. A non-empty dedupeKey is sent as an
// Idempotency-Key header so the server can drop duplicate replays. The
// response body is returned raw for the caller to interpret.
func (c *Client) Do(ctx context.Context, method, path string, payload json.RawMessage, dedupeKey string) (json.RawMessage, error) {
	url := strings.TrimSuffix(c.config.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")

	var body io.Reader
	if len(payload) > 0 {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.Permanent(errors.NewError(errors.CodeRemote, "failed to build request", err))
	}

	req.Header.Set("Accept", "application/json")
	if len(payload) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if dedupeKey != "" {
		req.Header.Set("Idempotency-Key", dedupeKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	logging.LogRemoteResponse(ctx, c.logger, method+" "+path, time.Since(start), err)
	if err != nil {
		// Transport failure: transient, the drainer retries.
		return nil, errors.NewError(errors.CodeNetwork, "request failed", err).
			WithContext("path", path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewError(errors.CodeRemote, "failed to read response", err).
			WithContext("path", path)
	}

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return data, nil

	case resp.StatusCode >= http.StatusInternalServerError:
		// Server-side failure: transient.
		return nil, errors.NewError(errors.CodeRemote,
			fmt.Sprintf("remote returned %d", resp.StatusCode), errors.ErrRemoteFailure).
			WithContext("path", path).
			WithContext("status", resp.StatusCode)

	default:
		// Client-side rejection: retrying sends the same bad request again.
		return nil, errors.Permanent(errors.NewError(errors.CodeRemote,
			fmt.Sprintf("remote rejected request with %d", resp.StatusCode), errors.ErrRemoteFailure).
			WithContext("path", path).
			WithContext("status", resp.StatusCode))
	}
}

// NewHandler returns a replay handler that sends the queued payload to the
// given method and path. The action id arrives as the dedupe key.
func NewHandler(client *Client, method, path string) ports.ReplayHandler {
	return func(ctx context.Context, payload json.RawMessage, dedupeKey string) (json.RawMessage, error) {
		return client.Do(ctx, method, path, payload, dedupeKey)
	}
}

// NewCall returns a RemoteCall bound to the given method and path, for use
// as the Remote of an Execute request.
func NewCall(client *Client, method, path string, payload json.RawMessage) ports.RemoteCall {
	return func(ctx context.Context) ports.Envelope {
		data, err := client.Do(ctx, method, path, payload, "")
		return ports.Envelope{Data: data, Err: err}
	}
}
