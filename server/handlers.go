package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/orchestrator"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrSessionRequired):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTurnInFlight), errors.Is(err, core.ErrCharacterExists):
		return http.StatusConflict
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed path=%s: %v", c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": err.Error()})
}

func (s *Server) handleChat(c *gin.Context) {
	var req orchestrator.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	res, err := s.orch.Turn(c.Request.Context(), req)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleChatStream(c *gin.Context) {
	var req orchestrator.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	// Validation, lock acquisition and history loading run before any
	// response bytes, so conflicts still map to a clean status code.
	events, err := s.orch.StreamTurn(c.Request.Context(), req)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	for ev := range events {
		switch {
		case ev.Done:
			writeSSESentinel(c.Writer)
		case ev.Err != nil:
			writeSSEData(c.Writer, gin.H{"error": ev.Err.Error()})
		default:
			writeSSEData(c.Writer, gin.H{"content": ev.Content})
		}
		c.Writer.Flush()
	}
}

func (s *Server) handleListCharacters(c *gin.Context) {
	chars, err := s.deps.Characters.ListCharacters(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, chars)
}

func (s *Server) handleCreateCharacter(c *gin.Context) {
	var char core.Character
	if err := c.ShouldBindJSON(&char); err != nil || char.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "character name is required"})
		return
	}
	created, err := s.deps.Characters.CreateCharacter(c.Request.Context(), char)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleListSessions(c *gin.Context) {
	limit := queryInt(c, "limit", s.sessionListLimit)
	sessions, err := s.deps.Sessions.ListSessions(c.Request.Context(), limit)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (s *Server) handleListMessages(c *gin.Context) {
	limit := queryInt(c, "limit", s.messageListLimit)
	msgs, err := s.deps.Sessions.ListMessages(c.Request.Context(), c.Param("sid"), limit)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (s *Server) handleBindCharacter(c *gin.Context) {
	var req struct {
		CharacterID int64 `json:"character_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CharacterID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "character_id is required"})
		return
	}
	ctx := c.Request.Context()
	char, err := s.deps.Characters.CharacterByID(ctx, req.CharacterID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if char == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "character not found"})
		return
	}
	if err := s.deps.Sessions.BindCharacter(ctx, c.Param("sid"), req.CharacterID); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": c.Param("sid"), "character_id": req.CharacterID})
}

func (s *Server) handleRenameSession(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "title is required"})
		return
	}
	if err := s.deps.Sessions.RenameSession(c.Request.Context(), c.Param("sid"), req.Title); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": c.Param("sid"), "title": req.Title})
}

// handleDeleteSession removes the durable rows, then the cache entry and any
// held lock, so a recreated session cannot observe stale history.
func (s *Server) handleDeleteSession(c *gin.Context) {
	ctx := c.Request.Context()
	sid := c.Param("sid")
	deleted, err := s.deps.Sessions.DeleteSession(ctx, sid)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if err := s.deps.Cache.Delete(ctx, sid); err != nil {
		s.logger.Warn("failed to purge cache for deleted session session_id=%s: %v", sid, err)
	}
	if err := s.deps.Lock.Release(ctx, sid); err != nil {
		s.logger.Warn("failed to release lock for deleted session session_id=%s: %v", sid, err)
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sid, "deleted": deleted})
}

func (s *Server) handleListModels(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Catalog.List(c.Request.Context()))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
