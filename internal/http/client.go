// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package http wraps net/http for the JSON APIs of the route and geocoding providers.
package http

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"runtime"
	"time"

	"github.com/mercatocomunale/navigator/internal/logger"
)

const (
	// DefaultTimeout applies to Get.
	DefaultTimeout = time.Second * 10

	// MaxResponseSize bounds a decoded response body. Full route geometries of long
	// driving routes stay well below it.
	MaxResponseSize = 8 << 20
)

var (
	// version is set at build time
	version = "dev"
	// UserAgent is sent with every request. Nominatim rejects requests without one.
	UserAgent = fmt.Sprintf("navigator/%s (%s; %s)", version, runtime.GOOS, runtime.GOARCH)

	ErrNonPointerTarget = errors.New("target must be a non-nil pointer")
	ErrResponseTooLarge = errors.New("response body exceeds size limit")
)

// Client is a net/http client that decodes JSON responses and logs through logger.
type Client struct {
	*http.Client
	logger *logger.Logger
}

func New(log *logger.Logger) *Client {
	transport := &http.Transport{
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     time.Minute,
	}
	return &Client{
		Client: &http.Client{Timeout: DefaultTimeout, Transport: transport},
		logger: log,
	}
}

// Get is GetWithTimeout with DefaultTimeout.
func (h *Client) Get(ctx context.Context, endpoint string, target any, query url.Values, headers map[string]string) (int, error) {
	return h.GetWithTimeout(ctx, endpoint, target, query, headers, DefaultTimeout)
}

// GetWithTimeout sends a GET request and decodes the JSON body into target. The status
// code is returned even if decoding fails, so callers can tell API errors from
// transport errors.
func (h *Client) GetWithTimeout(ctx context.Context, endpoint string, target any, query url.Values,
	headers map[string]string, timeout time.Duration,
) (int, error) {
	if rv := reflect.ValueOf(target); rv.Kind() != reflect.Pointer || rv.IsNil() {
		return 0, ErrNonPointerTarget
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	request, err := newRequest(ctx, endpoint, query, headers)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	response, err := h.Do(request)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	if response == nil {
		return 0, errors.New("nil response received")
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			h.logger.Error("failed to close HTTP request body", logger.Err(err))
		}
	}()
	h.logger.Debug("HTTP request completed", slog.String("host", request.URL.Host),
		slog.String("path", request.URL.Path), slog.Int("status", response.StatusCode),
		slog.Duration("duration", time.Since(start)))

	return response.StatusCode, decode(response.Body, target)
}

func newRequest(ctx context.Context, endpoint string, query url.Values, headers map[string]string) (*http.Request, error) {
	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if len(query) > 0 {
		reqURL.RawQuery = query.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	request.Header.Set("User-Agent", UserAgent)
	request.Header.Set("Accept", "application/json")
	for key, val := range headers {
		request.Header.Set(key, val)
	}
	return request, nil
}

func decode(body io.Reader, target any) error {
	limited := &io.LimitedReader{R: body, N: MaxResponseSize + 1}
	if err := json.NewDecoder(limited).Decode(target); err != nil {
		if limited.N <= 0 {
			return ErrResponseTooLarge
		}
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}
