// Package auth provides the client for the external identity verifier.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// verifyRequest is the body sent to the verifier for every protected request.
type verifyRequest struct {
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
}

// Client calls the external identity verifier. It holds no token state of its
// own: the verifier's decision is trusted completely, one call per request.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a verifier Client for the given endpoint.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// Verify asks the external verifier whether the credential pair is valid.
// A 2xx response means authorized, any other status means not authorized.
// The returned error is non-nil only for transport-level faults — a normal
// rejection is (false, nil), not an error.
func (c *Client) Verify(ctx context.Context, username, accessToken string) (bool, error) {
	body, err := json.Marshal(verifyRequest{Username: username, AccessToken: accessToken})
	if err != nil {
		return false, fmt.Errorf("encode verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("call verifier: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
