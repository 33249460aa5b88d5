// Package health serves the liveness endpoint polled by the hosting platform.
package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// StatusSource reports the state of the bot for /health
type StatusSource interface {
	Connected() bool
}

// Response is the JSON body of /health
type Response struct {
	Status    string    `json:"status"`
	WhatsApp  string    `json:"whatsapp"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// Server is a small HTTP responder independent from the bot state
type Server struct {
	srv     *http.Server
	source  StatusSource
	started time.Time
	log     zerolog.Logger
}

// NewServer creates the responder listening on addr
func NewServer(addr string, source StatusSource, log zerolog.Logger) *Server {
	s := &Server{
		source:  source,
		started: time.Now(),
		log:     log.With().Str("component", "Health").Logger(),
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the gin engine serving / and /health
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.live)
	r.HEAD("/", s.live)
	r.GET("/health", s.health)
	return r
}

func (s *Server) live(c *gin.Context) {
	c.String(http.StatusOK, "Bot is alive")
}

func (s *Server) health(c *gin.Context) {
	state := "offline"
	if s.source != nil && s.source.Connected() {
		state = "online"
	}
	c.JSON(http.StatusOK, Response{
		Status:    "ok",
		WhatsApp:  state,
		Uptime:    time.Since(s.started).Truncate(time.Second).String(),
		Timestamp: time.Now(),
	})
}

// Start serves in the background
func (s *Server) Start() {
	go func() {
		s.log.Info().Str("addr", s.srv.Addr).Msg("Health endpoint listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("Health endpoint stopped")
		}
	}()
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
