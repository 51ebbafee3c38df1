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

package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/backoff"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/configstore"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/metrics"
)

// maxConfigSize limits PUT /api/config bodies.
const maxConfigSize = 8 << 20

func etag(data []byte) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%016x", xxhash.Sum64(data)))
}

func (s *Server) registerDeviceRoutes(g *gin.RouterGroup) {
	if s.store == nil {
		return
	}

	g.GET("/config", s.getConfig)
	g.PUT("/config", s.putConfig)
	g.GET("/cameras", s.getCameras)
	g.GET("/schema", s.getSchema)
}

func (s *Server) getConfig(c *gin.Context) {
	cfg, err := s.store.Load(c.Request.Context())
	if err != nil {
		status := http.StatusServiceUnavailable
		if backoff.IsPermanentError(err) {
			status = http.StatusInternalServerError
		}
		metrics.IncErrorCountAndLog(metrics.ComponentAPI, "get_config", err, s.logger)
		errorJSON(c, status, err)

		return
	}

	data, err := config.Encode(cfg)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}

	tag := etag(data)
	c.Header("ETag", tag)
	if c.GetHeader("If-None-Match") == tag {
		c.Status(http.StatusNotModified)
		return
	}

	c.Data(http.StatusOK, "application/json", data)
}

// putConfig replaces the stored config. The last write wins.
func (s *Server) putConfig(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxConfigSize))
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}

	cfg, err := config.Parse(body)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}

	if err := s.store.Save(c.Request.Context(), cfg); err != nil {
		metrics.IncErrorCountAndLog(metrics.ComponentAPI, "put_config", err, s.logger)
		errorJSON(c, http.StatusInternalServerError, err)

		return
	}

	if data, err := config.Encode(cfg); err == nil {
		c.Header("ETag", etag(data))
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getCameras(c *gin.Context) {
	cams, err := s.store.Cameras(c.Request.Context())
	if err != nil {
		metrics.IncErrorCountAndLog(metrics.ComponentAPI, "get_cameras", err, s.logger)
		errorJSON(c, http.StatusServiceUnavailable, err)

		return
	}

	c.JSON(http.StatusOK, cams)
}

func (s *Server) getSchema(c *gin.Context) {
	c.Data(http.StatusOK, "application/schema+json", configstore.Schema())
}
