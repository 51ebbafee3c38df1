// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package device talks to the config API of an OAK vision device.
package device

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/backoff"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/constants"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/logger"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/metrics"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/safejson"
)

type Endpoint string

var (
	ConfigEndpoint  Endpoint = "/api/config"
	CamerasEndpoint Endpoint = "/api/cameras"
	SchemaEndpoint  Endpoint = "/api/schema"
)

// maxBodySize limits how much of a response is read.
const maxBodySize = 8 << 20

// Client loads and saves the config of one device. It is safe for
// concurrent use.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	logger  *zap.SugaredLogger
}

// NewClient returns a client for the device API at baseURL.
func NewClient(baseURL string) *Client {
	log := logger.For(logger.ComponentDeviceClient)

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{Timeout: constants.FetchTimeout}
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 250 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = &zapRetryLogger{logger: log}
	retryClient.CheckRetry = checkRetry(log)

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    retryClient,
		logger:  log,
	}
}

// checkRetry only retries connection errors. HTTP status errors are left to
// the caller.
func checkRetry(log *zap.SugaredLogger) retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err == nil {
			return false, nil
		}

		errStr := err.Error()
		isRetryable := strings.Contains(errStr, "EOF") ||
			strings.Contains(errStr, "connection reset") ||
			strings.Contains(errStr, "connection refused") ||
			strings.Contains(errStr, "timeout") ||
			strings.Contains(errStr, "no such host") ||
			strings.Contains(errStr, "network is unreachable")
		if isRetryable {
			log.Debugf("Retrying due to connection error: %v", err)
		}

		return isRetryable, nil
	}
}

func (c *Client) do(ctx context.Context, method string, endpoint Endpoint, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+string(endpoint), bodyReader)
	if err != nil {
		return nil, backoff.NewPermanentError(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.IncErrorCount(metrics.ComponentDeviceClient, string(endpoint))
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debugf("failed to close response body: %v", cerr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode >= 300 {
		metrics.IncErrorCount(metrics.ComponentDeviceClient, string(endpoint))
		err := fmt.Errorf("%s %s: unexpected status %d: %s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(data)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.NewPermanentError(err)
		}

		return nil, backoff.NewTransientError(err)
	}

	return data, nil
}

func getJSON[T any](ctx context.Context, c *Client, endpoint Endpoint) (T, error) {
	var out T
	data, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return out, err
	}
	if err := safejson.Unmarshal(data, &out); err != nil {
		return out, backoff.NewPermanentError(fmt.Errorf("failed to decode %s: %w", endpoint, err))
	}

	return out, nil
}

// FetchConfig loads the device's config. Missing lists come back empty, the
// same as for a config read from disk.
func (c *Client) FetchConfig(ctx context.Context) (config.LocalConfig, error) {
	data, err := c.do(ctx, http.MethodGet, ConfigEndpoint, nil)
	if err != nil {
		return config.LocalConfig{}, err
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return config.LocalConfig{}, backoff.NewPermanentError(fmt.Errorf("failed to decode %s: %w", ConfigEndpoint, err))
	}

	return cfg, nil
}

func (c *Client) FetchCameras(ctx context.Context) ([]config.DetectedCamera, error) {
	cams, err := getJSON[[]config.DetectedCamera](ctx, c, CamerasEndpoint)
	if cams == nil && err == nil {
		cams = []config.DetectedCamera{}
	}

	return cams, err
}

func (c *Client) FetchSchema(ctx context.Context) (safejson.RawMessage, error) {
	data, err := c.do(ctx, http.MethodGet, SchemaEndpoint, nil)
	if err != nil {
		return nil, err
	}
	if !safejson.Valid(data) {
		return nil, backoff.NewPermanentError(fmt.Errorf("%s returned invalid JSON", SchemaEndpoint))
	}

	return safejson.RawMessage(data), nil
}

// SaveConfig replaces the device's config. There is no conflict detection;
// the last save wins.
func (c *Client) SaveConfig(ctx context.Context, cfg config.LocalConfig) error {
	body, err := config.Encode(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if _, err := c.do(ctx, http.MethodPut, ConfigEndpoint, body); err != nil {
		return err
	}
	c.logger.Infof("Saved config to %s", c.baseURL)

	return nil
}

// zapRetryLogger adapts zap.SugaredLogger to retryablehttp.LeveledLogger interface.
type zapRetryLogger struct {
	logger *zap.SugaredLogger
}

func (z *zapRetryLogger) Error(msg string, keysAndValues ...interface{}) {
	z.logger.Errorw(msg, keysAndValues...)
}

func (z *zapRetryLogger) Info(msg string, keysAndValues ...interface{}) {
	z.logger.Infow(msg, keysAndValues...)
}

func (z *zapRetryLogger) Debug(msg string, keysAndValues ...interface{}) {
	z.logger.Debugw(msg, keysAndValues...)
}

func (z *zapRetryLogger) Warn(msg string, keysAndValues ...interface{}) {
	z.logger.Warnw(msg, keysAndValues...)
}
