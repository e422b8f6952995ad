// Package opsserver exposes the operational surface the worker/CLI
// processes need from something outside their own log lines: a liveness
// probe and a Prometheus scrape endpoint. It deliberately carries no
// business route — the REST/HTTP surface for document upload, review,
// and approval is out of scope and left to the collaborator the spec
// only specifies a contract for — so this is a much smaller relative of
// the teacher's gin *Server, with the business handlers stripped and a
// readiness check substituted in.
package opsserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checker reports whether a dependency the process needs (DB pool,
// dropzone mount, cache) is currently reachable, for /healthz to roll
// up into a single ready/not-ready verdict.
type Checker func(ctx context.Context) error

// Config holds the ops server's own wiring.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
}

// Server is the gin engine hosting /healthz and /metrics only.
type Server struct {
	config   *Config
	router   *gin.Engine
	checkers map[string]Checker
}

// NewServer builds the ops server. checkers is name -> Checker; every
// entry runs on each /healthz call and a single failure flips the
// response to 503 with the failing name reported.
func NewServer(config *Config, checkers map[string]Checker) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	s := &Server{config: config, router: router, checkers: checkers}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealthz)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return srv.ListenAndServe()
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	failures := map[string]string{}
	for name, check := range s.checkers {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"failed": failures,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
