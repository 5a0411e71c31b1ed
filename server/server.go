// Package server exposes the chat backend over HTTP: the turn endpoints
// (one-shot and SSE streaming), persona and session administration, the
// model catalog and a health probe.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/logging"
	"github.com/hupe1980/chatmesh/model"
	"github.com/hupe1980/chatmesh/orchestrator"
)

// Deps bundles the collaborators the HTTP layer needs beyond the
// orchestrator itself. Cache and Lock are used only by session deletion,
// which purges both alongside the durable rows.
type Deps struct {
	Characters core.CharacterStore
	Sessions   core.SessionAdmin
	Cache      core.HistoryCache
	Lock       core.SessionLock
	Catalog    *model.Catalog
}

// Options holds configuration overrides passed to New().
type Options struct {
	// Logger receives request-level logs.
	Logger logging.Logger
	// SessionListLimit caps GET /sessions.
	SessionListLimit int
	// MessageListLimit caps GET /sessions/:sid/messages.
	MessageListLimit int
}

// Server is the HTTP front of the chat backend.
type Server struct {
	engine *gin.Engine
	orch   *orchestrator.Orchestrator
	deps   Deps

	logger           logging.Logger
	sessionListLimit int
	messageListLimit int
}

// New constructs the server and registers all routes.
func New(orch *orchestrator.Orchestrator, deps Deps, optFns ...func(o *Options)) *Server {
	opts := Options{
		Logger:           logging.NoOpLogger{},
		SessionListLimit: 100,
		MessageListLimit: 500,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), corsMiddleware())

	s := &Server{
		engine:           engine,
		orch:             orch,
		deps:             deps,
		logger:           opts.Logger,
		sessionListLimit: opts.SessionListLimit,
		messageListLimit: opts.MessageListLimit,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.POST("/chat", s.handleChat)
	s.engine.POST("/chat/stream", s.handleChatStream)

	s.engine.GET("/characters", s.handleListCharacters)
	s.engine.POST("/characters", s.handleCreateCharacter)

	s.engine.GET("/sessions", s.handleListSessions)
	s.engine.GET("/sessions/:sid/messages", s.handleListMessages)
	s.engine.POST("/sessions/:sid/bind-character", s.handleBindCharacter)
	s.engine.POST("/sessions/:sid/rename", s.handleRenameSession)
	s.engine.DELETE("/sessions/:sid", s.handleDeleteSession)

	s.engine.GET("/models", s.handleListModels)
	s.engine.GET("/health", s.handleHealth)
}

// Handler returns the server as an http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run blocks serving HTTP on addr.
func (s *Server) Run(addr string) error {
	s.logger.Info("listening on %s", addr)
	return s.engine.Run(addr)
}

// corsMiddleware allows browser frontends on any origin. The API carries no
// cookies, so the permissive policy is safe.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
