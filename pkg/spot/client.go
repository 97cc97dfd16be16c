// Package spot is a typed HTTP client for the spot-price feed service.
// It carries no retry or backoff policy: a failed cycle is the caller's
// degraded condition to log and skip.
package spot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/andesgrid/bess-dispatch-go/internal/config"
)

// Client represents the spot feed HTTP client.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// NewClient creates a new spot feed client instance.
func NewClient(cfg *config.FeedConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimSuffix(cfg.ServiceURL, "/"),
		timeout: timeout,
	}
}

// BaseURL returns the configured feed base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HealthCheck checks if the feed service is healthy.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	var response HealthResponse
	if err := c.makeRequest(ctx, "GET", "/health", nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetLatest retrieves the most recent spot price for a node.
func (c *Client) GetLatest(ctx context.Context, node string) (*SpotPrice, error) {
	path := "/api/prices/latest?node=" + url.QueryEscape(node)
	var response LatestResponse
	if err := c.makeRequest(ctx, "GET", path, nil, &response); err != nil {
		return nil, err
	}
	if !response.Success {
		return nil, fmt.Errorf("feed returned no price for node %s", node)
	}
	return &response.Price, nil
}

// GetDay retrieves one calendar day of hourly prices for a node. The
// date is formatted YYYY-MM-DD.
func (c *Client) GetDay(ctx context.Context, node, date string) ([]SpotPrice, error) {
	path := fmt.Sprintf("/api/prices/day?node=%s&date=%s",
		url.QueryEscape(node), url.QueryEscape(date))
	var response DayResponse
	if err := c.makeRequest(ctx, "GET", path, nil, &response); err != nil {
		return nil, err
	}
	if !response.Success {
		return nil, fmt.Errorf("feed returned no prices for node %s on %s", node, date)
	}
	return response.Prices, nil
}

func (c *Client) makeRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "BESS-Dispatch-Go/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.WithError(err).Debug("Error closing response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Error != "" {
			return fmt.Errorf("feed service error (%d): %s", resp.StatusCode, errorResp.Error)
		}
		return fmt.Errorf("feed service error (%d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
