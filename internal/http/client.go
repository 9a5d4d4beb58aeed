// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"runtime"
	"time"

	"github.com/wneessen/gridspace-companion/internal/logger"
)

const (
	// DefaultTimeout is the default timeout value for the HTTPClient
	DefaultTimeout = time.Second * 10

	// maxBodySize limits how much of a response body we are willing to read
	maxBodySize = 1 << 20
)

var (
	// version is the version of the application (will be set at build time)
	version = "dev"
	// UserAgent is the User-Agent that the HTTP client sends with API requests
	UserAgent = fmt.Sprintf("Mozilla/5.0 (%s; %s) gridspace-companion/%s (+https://github.com/wneessen/gridspace-companion/)",
		runtime.GOOS,
		runtime.GOARCH,
		version,
	)

	ErrNonPointerTarget = errors.New("target must be a non-nil pointer")
)

// Client is a type wrapper for the Go stdlib http.Client and the Config
type Client struct {
	*http.Client
	logger *logger.Logger
}

// New returns a new HTTP client
func New(logger *logger.Logger) *Client {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	httpTransport := &http.Transport{TLSClientConfig: tlsConfig}
	httpClient := &http.Client{
		Timeout:   DefaultTimeout,
		Transport: httpTransport,
	}
	return &Client{httpClient, logger}
}

// Get performs a HTTP GET request for the given URL and json-unmarshals the response
// into target
func (h *Client) Get(ctx context.Context, endpoint string, target any, query url.Values, headers map[string]string) (int, error) {
	return h.GetWithTimeout(ctx, endpoint, target, query, headers, DefaultTimeout)
}

// GetWithTimeout performs a HTTP GET request for the given URL and timeout and JSON-unmarshals
// the response into target
func (h *Client) GetWithTimeout(ctx context.Context, endpoint string, target any, query url.Values, headers map[string]string, timeout time.Duration) (int, error) {
	if err := checkTarget(target); err != nil {
		return 0, err
	}
	code, body, err := h.GetRaw(ctx, endpoint, query, headers, timeout)
	if err != nil {
		return code, err
	}
	if err = json.Unmarshal(body, target); err != nil {
		return code, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return code, nil
}

// GetRaw performs a HTTP GET request for the given URL and timeout and returns the status code
// together with the undecoded response body. Non-2xx responses are not treated as errors.
func (h *Client) GetRaw(ctx context.Context, endpoint string, query url.Values, headers map[string]string, timeout time.Duration) (int, []byte, error) {
	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if len(query) > 0 {
		reqURL.RawQuery = query.Encode()
	}
	return h.do(ctx, http.MethodGet, reqURL.String(), nil, headers, timeout)
}

// Post performs a HTTP POST request for the given URL and json-unmarshals the response
// into target
func (h *Client) Post(ctx context.Context, url string, target any, body io.Reader, headers map[string]string) (int, error) {
	return h.PostWithTimeout(ctx, url, target, body, headers, DefaultTimeout)
}

// PostWithTimeout performs a HTTP POST request for the given URL and timeout and JSON-unmarshals
// the response into target
func (h *Client) PostWithTimeout(ctx context.Context, url string, target any, body io.Reader, headers map[string]string, timeout time.Duration) (int, error) {
	if err := checkTarget(target); err != nil {
		return 0, err
	}
	code, resBody, err := h.do(ctx, http.MethodPost, url, body, headers, timeout)
	if err != nil {
		return code, err
	}
	if err = json.Unmarshal(resBody, target); err != nil {
		return code, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return code, nil
}

// PostJSON JSON-encodes payload, posts it to the given URL and returns the response status code.
// The response body is discarded.
func (h *Client) PostJSON(ctx context.Context, url string, payload any, headers map[string]string, timeout time.Duration) (int, error) {
	buf := bytes.NewBuffer(nil)
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return 0, fmt.Errorf("failed to encode JSON payload: %w", err)
	}
	allHeaders := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		allHeaders[k] = v
	}
	code, _, err := h.do(ctx, http.MethodPost, url, buf, allHeaders, timeout)
	return code, err
}

func (h *Client) do(ctx context.Context, method, endpoint string, body io.Reader, headers map[string]string, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Prepare HTTP request
	request, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed create new HTTP request with context: %w", err)
	}
	request.Header.Set("User-Agent", UserAgent)
	for k, v := range headers {
		request.Header.Set(k, v)
	}

	// Execute HTTP request
	response, err := h.Do(request)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	if response == nil {
		return 0, nil, errors.New("nil response received")
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			h.logger.Error("failed to close HTTP request body", logger.Err(err))
		}
	}(response.Body)

	resBody, err := io.ReadAll(io.LimitReader(response.Body, maxBodySize))
	if err != nil {
		return response.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return response.StatusCode, resBody, nil
}

func checkTarget(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrNonPointerTarget
	}
	return nil
}
