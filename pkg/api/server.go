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

// Package api serves the device config endpoints and the editor sessions
// over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/configstore"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/constants"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/editor"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/logger"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/metrics"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/sentry"
)

// Server is the HTTP surface of the config builder.
type Server struct {
	router   *gin.Engine
	handler  http.Handler
	server   *http.Server
	logger   *zap.SugaredLogger
	settings config.Settings
	store    *configstore.Store
	deps     editor.Deps
	sessions *sessionTable

	// ctx outlives requests; editor sessions are mounted below it.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer wires the routes. store backs the device endpoints; deps
// describes where editor sessions load from and save to.
func NewServer(settings config.Settings, store *configstore.Store, deps editor.Deps) *Server {
	if settings.SessionTTL <= 0 {
		settings.SessionTTL = constants.SessionTTL
	}
	deps.TTL = settings.SessionTTL

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		logger:   logger.For(logger.ComponentAPI),
		settings: settings,
		store:    store,
		deps:     deps,
		sessions: newSessionTable(settings.SessionTTL, constants.SessionSweepInterval),
		ctx:      ctx,
		cancel:   cancel,
	}

	router := gin.New()
	router.Use(s.recoveryMiddleware())
	router.Use(s.loggingMiddleware())
	if len(settings.AllowedOrigins) > 0 {
		router.Use(s.corsMiddleware())
	}

	s.registerDeviceRoutes(router.Group("/api"))
	s.registerEditorRoutes(router.Group("/api/editor"))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	s.router = router
	// Responses are compressed for clients sending Accept-Encoding.
	s.handler = gzhttp.GzipHandler(router)

	return s
}

// Handler returns the router wrapped in response compression, e.g. for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves on the configured address until Stop is called, and sweeps
// expired editor sessions in the background.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.settings.ListenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go s.sweepLoop()

	s.logger.Infow("Starting API server",
		"addr", s.settings.ListenAddr,
		"device_url", s.settings.DeviceURL,
		"cors_origins", s.settings.AllowedOrigins,
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API server failed: %w", err)
	}

	return nil
}

// Stop shuts the server down and unmounts every editor session.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()
	s.sessions.closeAll()

	if s.server == nil {
		return nil
	}
	s.logger.Info("Stopping API server")

	return s.server.Shutdown(ctx)
}

func (s *Server) sweepLoop() {
	ticker := time.NewTicker(constants.SessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.sweep(); n > 0 {
				s.logger.Debugf("closed %d expired editor sessions", n)
			}
		}
	}
}

// recoveryMiddleware turns panics into a 500 and reports them.
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic in %s %s: %v", c.Request.Method, c.FullPath(), r)
				metrics.IncErrorCount(metrics.ComponentAPI, c.FullPath())
				sentry.ReportIssueWithContext(err, sentry.IssueTypeError, s.logger, map[string]interface{}{
					"operation": c.FullPath(),
					"method":    c.Request.Method,
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		s.logger.Debugw("API request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		for _, allowedOrigin := range s.settings.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				c.Header("Access-Control-Allow-Origin", allowedOrigin)
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Content-Type, If-None-Match")
				c.Header("Access-Control-Expose-Headers", "ETag")

				break
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)

			return
		}

		c.Next()
	}
}

func errorJSON(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
