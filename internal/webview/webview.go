// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package webview serves the endpoint the settings webview reports its result to.
package webview

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/wneessen/gridspace-companion/internal/logger"
	"github.com/wneessen/gridspace-companion/internal/settings"
)

const (
	appName = "gridspace-companion"

	// DefaultListen is the address the webview endpoint listens on by default
	DefaultListen = "127.0.0.1:8085"

	requestTimeout  = time.Second * 10
	shutdownTimeout = time.Second * 5
)

// Receiver is notified when the webview was closed with a submitted configuration.
type Receiver interface {
	OnConfigurationReceived(ctx context.Context, payload settings.Payload)
}

// Server is the fiber application receiving webview events.
type Server struct {
	app      *fiber.App
	listen   string
	log      *logger.Logger
	receiver Receiver
}

// New returns a Server handing decoded configurations to receiver.
func New(log *logger.Logger, receiver Receiver, listen string) (*Server, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if receiver == nil {
		return nil, errors.New("receiver is required")
	}
	if listen == "" {
		listen = DefaultListen
	}

	server := &Server{listen: listen, log: log, receiver: receiver}
	server.app = fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           requestTimeout,
		WriteTimeout:          requestTimeout,
		ErrorHandler:          server.handleError,
	})
	server.app.Use(recover.New())
	server.app.Use(server.logRequest)
	server.app.Get("/health", server.health)
	server.app.Post("/webview/closed", server.webviewClosed)

	return server, nil
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves requests until ctx is cancelled and then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.listen)
	}()
	s.log.Info("webview endpoint listening", "address", s.listen)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.app.ShutdownWithContext(shutdownCtx)
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": appName,
	})
}

// webviewClosed handles the webview result. An empty body means the webview was dismissed.
func (s *Server) webviewClosed(c *fiber.Ctx) error {
	payload, err := settings.Decode(string(c.Body()))
	if err != nil {
		s.log.Error("failed to decode webview response", logger.Err(err))
		return fiber.NewError(fiber.StatusBadRequest, "invalid webview response")
	}
	if payload == nil {
		s.log.Debug("webview dismissed without configuration")
		return c.SendStatus(fiber.StatusNoContent)
	}

	s.receiver.OnConfigurationReceived(c.UserContext(), payload)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) logRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("webview request", "method", c.Method(), "path", c.Path(),
		"status", c.Response().StatusCode(), "duration", time.Since(start))
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
