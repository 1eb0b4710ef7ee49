// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package server exposes navigation sessions to remote hosts over HTTP. Hosts push
// their position fixes and poll the session snapshot and pending announcements.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/vorlif/spreak"

	"github.com/mercatocomunale/navigator/internal/logger"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	App      *fiber.App
	Manager  *Manager
	log      *logger.Logger
	t        *spreak.Localizer
	validate *validator.Validate
}

func NewServer(manager *Manager, log *logger.Logger, t *spreak.Localizer) (*Server, error) {
	if manager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if t == nil {
		return nil, fmt.Errorf("localizer is required")
	}

	s := &Server{
		Manager:  manager,
		log:      log,
		t:        t,
		validate: validator.New(),
	}
	s.App = fiber.New(fiber.Config{
		AppName:               "navigator",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.App.Use(recover.New())
	s.App.Use(s.logRequest)

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "sessions": s.Manager.Len()})
	})
	RegisterRoutes(s.App.Group("/sessions"), s)
}

// Listen serves the API on addr until ctx is cancelled. All sessions are closed on
// shutdown.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.App.Listen(addr)
	}()
	s.log.Info("host API listening", slog.String("addr", addr))

	select {
	case err := <-errCh:
		s.Manager.CloseAll()
		return fmt.Errorf("failed to serve host API: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.App.ShutdownWithContext(shutdownCtx)
	s.Manager.CloseAll()
	return err
}

func (s *Server) logRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("request handled", slog.String("method", c.Method()), slog.String("path", c.Path()),
		slog.Int("status", c.Response().StatusCode()), slog.Duration("duration", time.Since(start)))
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", slog.String("path", c.Path()), logger.Err(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
