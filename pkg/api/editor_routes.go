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
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/editor"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/sentry"
)

type actionRequest struct {
	Value string `json:"value"`
}

func (s *Server) registerEditorRoutes(g *gin.RouterGroup) {
	g.POST("/sessions", s.createSession)

	sg := g.Group("/sessions/:id", s.withSession)
	sg.GET("", s.getSession)
	sg.DELETE("", s.deleteSession)
	sg.POST("/fields/:field", s.postField)
	sg.POST("/actions/:action", s.postAction)
	sg.GET("/warnings", s.getWarnings)
	sg.GET("/export", s.getExport)
	sg.POST("/save", s.postSave)
}

const sessionKey = "session"

func (s *Server) withSession(c *gin.Context) {
	sess, ok := s.sessions.get(c.Param("id"))
	if !ok {
		errorJSON(c, http.StatusNotFound, fmt.Errorf("editor session %s not found", c.Param("id")))
		return
	}
	c.Set(sessionKey, sess)
	c.Next()
}

func session(c *gin.Context) *editor.Session {
	return c.MustGet(sessionKey).(*editor.Session)
}

func (s *Server) createSession(c *gin.Context) {
	sess := s.sessions.create(s.ctx, s.deps)
	c.JSON(http.StatusCreated, sess.Render())
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, session(c).Render())
}

func (s *Server) deleteSession(c *gin.Context) {
	s.sessions.remove(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) postField(c *gin.Context) {
	var ev form.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}

	sess := session(c)
	st, err := sess.HandleField(c.Param("field"), ev)
	s.respond(c, sess, "field", st, err)
}

func (s *Server) postAction(c *gin.Context) {
	var req actionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, err)
			return
		}
	}

	sess := session(c)
	st, err := sess.HandleAction(c.Param("action"), req.Value)
	s.respond(c, sess, "action", st, err)
}

// respond maps handler errors to statuses. Errors other than the known ones
// are bugs in a handler and are reported.
func (s *Server) respond(c *gin.Context, sess *editor.Session, operation string, st editor.State, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, st)
	case errors.Is(err, editor.ErrNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": st})
	case errors.Is(err, form.ErrUnknownControl):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "state": st})
	case errors.Is(err, form.ErrReadOnly):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": st})
	default:
		sentry.ReportEditorError(s.logger, sess.ID, operation, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "state": st})
	}
}

func (s *Server) getWarnings(c *gin.Context) {
	w, err := session(c).Warnings()
	if err != nil {
		errorJSON(c, http.StatusConflict, err)
		return
	}
	if w == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}

	c.JSON(http.StatusOK, w)
}

func (s *Server) getExport(c *gin.Context) {
	data, err := session(c).Export()
	if err != nil {
		errorJSON(c, http.StatusConflict, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="config.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) postSave(c *gin.Context) {
	sess := session(c)
	res, err := sess.Save(c.Request.Context())
	switch {
	case errors.Is(err, editor.ErrNotReady):
		errorJSON(c, http.StatusConflict, err)
	case err != nil:
		sentry.ReportEditorError(s.logger, sess.ID, "save", err)
		errorJSON(c, http.StatusInternalServerError, err)
	default:
		c.JSON(http.StatusOK, res)
	}
}
