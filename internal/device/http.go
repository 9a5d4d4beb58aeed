// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	ihttp "github.com/wneessen/gridspace-companion/internal/http"
)

const nameHTTP = "http"

var ErrEndpointRequired = errors.New("device endpoint is required")

// HTTPSender pushes messages as JSON to a bridge endpoint which relays them to the watch.
type HTTPSender struct {
	endpoint string
	timeout  time.Duration
	http     *ihttp.Client
}

// NewHTTPSender returns a sender posting to endpoint. A zero timeout selects the HTTP client default.
func NewHTTPSender(client *ihttp.Client, endpoint string, timeout time.Duration) (*HTTPSender, error) {
	if client == nil {
		return nil, errors.New("http client is required")
	}
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	if timeout <= 0 {
		timeout = ihttp.DefaultTimeout
	}
	return &HTTPSender{endpoint: endpoint, timeout: timeout, http: client}, nil
}

func (h *HTTPSender) Name() string {
	return nameHTTP
}

func (h *HTTPSender) Send(ctx context.Context, msg Message) error {
	code, err := h.http.PostJSON(ctx, h.endpoint, msg, nil, h.timeout)
	if err != nil {
		return &SendError{Transport: nameHTTP, Err: err}
	}
	if code < 200 || code > 299 {
		return &SendError{Transport: nameHTTP, Err: fmt.Errorf("bridge returned status %d", code)}
	}
	return nil
}
