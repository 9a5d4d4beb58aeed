// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package device implements the transports that deliver key/value messages to the watch.
package device

import (
	"context"
	"fmt"
)

const (
	// KeyWeatherTemperature carries the current temperature in whole degrees Celsius
	KeyWeatherTemperature = "WEATHER_TEMPERATURE"
)

// Message is a key/value mapping delivered to the device.
type Message map[string]any

// Sender delivers messages to the device.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// SendError is returned when a transport failed to deliver a message.
type SendError struct {
	Transport string
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send message via %s: %s", e.Transport, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
