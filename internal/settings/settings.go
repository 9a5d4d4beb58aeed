// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package settings decodes the configuration submitted by the settings webview.
package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"github.com/wneessen/gridspace-companion/internal/device"
)

const (
	// KeyShowWeather toggles the weather module
	KeyShowWeather = "SHOW_WEATHER"

	// StorageKey is the storage key holding the last submitted settings
	StorageKey = "clay-settings"
)

// Payload is a decoded configuration. Numbers are kept as json.Number.
type Payload map[string]any

// Decode parses a webview response. The response is JSON, optionally URI-encoded. Entries of
// the form {"value": x} are flattened to x. An empty response means the webview was dismissed
// and yields a nil Payload.
func Decode(response string) (Payload, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, nil
	}
	if !strings.HasPrefix(response, "{") {
		unescaped, err := url.PathUnescape(response)
		if err != nil {
			return nil, fmt.Errorf("failed to URI-decode settings: %w", err)
		}
		response = unescaped
	}

	var raw map[string]any
	decoder := json.NewDecoder(strings.NewReader(response))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode settings JSON: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("settings JSON is not an object")
	}

	return lo.MapValues(raw, func(value any, _ string) any {
		if entry, ok := value.(map[string]any); ok {
			if inner, ok := entry["value"]; ok {
				return inner
			}
		}
		return value
	}), nil
}

// Encode returns the JSON representation of the payload for persistence.
func (p Payload) Encode() (string, error) {
	buf := bytes.NewBuffer(nil)
	if err := json.NewEncoder(buf).Encode(p); err != nil {
		return "", fmt.Errorf("failed to encode settings: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// ForDevice converts the payload into a device message. The device has no boolean type, so
// booleans are sent as 1 and 0.
func (p Payload) ForDevice() device.Message {
	return lo.MapValues(p, func(value any, _ string) any {
		if b, ok := value.(bool); ok {
			return lo.Ternary(b, 1, 0)
		}
		return value
	})
}

// WeatherEnabled reports whether the payload enables the weather module. Only boolean true and
// the number 1 count as enabled.
func WeatherEnabled(p Payload) bool {
	switch v := p[KeyShowWeather].(type) {
	case bool:
		return v
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 1
	case float64:
		return v == 1
	case int:
		return v == 1
	case int64:
		return v == 1
	default:
		return false
	}
}
