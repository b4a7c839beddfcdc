// Package web is the HTTP surface of the bot: a small gin API for control
// and queries, plus a websocket endpoint streaming live events.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"condorbot/bot"
)

// Server exposes one controller over HTTP.
type Server struct {
	ctrl   *bot.Controller
	hub    *Hub
	log    *slog.Logger
	engine *gin.Engine
}

func NewServer(ctrl *bot.Controller, hub *Hub, log *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		ctrl:   ctrl,
		hub:    hub,
		log:    log,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api/v1")

	api.GET("/status", s.getStatus)
	api.GET("/trades", s.getTrades)
	api.GET("/performance", s.getPerformance)
	api.GET("/ticker", s.getTicker)

	api.POST("/start", s.postStart)
	api.POST("/stop", s.postStop)
	api.POST("/pause", s.postPause)
	api.POST("/resume", s.postResume)

	s.engine.GET("/ws", func(c *gin.Context) {
		s.hub.Serve(c.Writer, c.Request)
	})
}

// Handler returns the http.Handler, for tests and custom servers.
func (s *Server) Handler() http.Handler { return s.engine }

// Run blocks serving on addr.
func (s *Server) Run(addr string) error {
	s.log.Info("http server listening", "addr", addr)
	return s.engine.Run(addr)
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Status())
}

func (s *Server) getTrades(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	trades, err := s.ctrl.History(limit)
	if err != nil {
		s.log.Error("trade history query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "trade history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades, "count": len(trades)})
}

func (s *Server) getPerformance(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Performance())
}

func (s *Server) getTicker(c *gin.Context) {
	tk, err := s.ctrl.Ticker()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no ticker observed yet"})
		return
	}
	c.JSON(http.StatusOK, tk)
}

// postStart accepts an optional JSON body overriding the run's mode,
// strategy, or initial capital; an empty body restarts with the current
// configuration.
func (s *Server) postStart(c *gin.Context) {
	var req bot.StartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed start request: " + err.Error()})
			return
		}
	}

	if err := s.ctrl.Start(req); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, bot.ErrAlreadyRunning) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lifecycle": s.ctrl.State()})
}

func (s *Server) postStop(c *gin.Context) {
	if err := s.ctrl.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lifecycle": s.ctrl.State()})
}

func (s *Server) postPause(c *gin.Context) {
	if err := s.ctrl.Pause(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lifecycle": s.ctrl.State()})
}

func (s *Server) postResume(c *gin.Context) {
	if err := s.ctrl.Resume(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lifecycle": s.ctrl.State()})
}
