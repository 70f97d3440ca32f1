// Package web provides the HTTP server for go-numfeed
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/go-while/go-numfeed/internal/config"
	"github.com/go-while/go-numfeed/internal/database"
	"github.com/go-while/go-numfeed/internal/feed"
)

// WebServer represents the web server
type WebServer struct {
	Store     *feed.Store
	Ledger    *database.LedgerDB // nil when disabled
	Router    *gin.Engine
	Config    *config.MainConfig
	StartTime time.Time // Track server start time for uptime calculations

	mux        sync.Mutex
	httpServer *http.Server
}

// NewServer creates a new web server instance
func NewServer(store *feed.Store, ledger *database.LedgerDB, cfg *config.MainConfig) *WebServer {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Configure Gin to trust reverse proxy headers
	router.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})

	router.Use(secure.New(secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	server := &WebServer{
		Store:     store,
		Ledger:    ledger,
		Router:    router,
		Config:    cfg,
		StartTime: time.Now(),
	}

	if cfg.Debug {
		router.Use(server.ApacheLogFormat())
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (s *WebServer) setupRoutes() {
	s.Router.GET("/fetch", s.fetchNumbers)
	s.Router.GET("/stats", s.getStats)
	s.Router.GET("/ledger", s.getLedger)
	s.Router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
}

// Start binds the configured address and serves until Shutdown.
// A bind failure is returned before anything is served.
func (s *WebServer) Start() error {
	addr := s.Config.ListenAddr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	s.mux.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mux.Unlock()

	s.StartTime = time.Now()
	log.Printf("[WEB]: Starting HTTP server on http://%s", addr)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener and waits for running requests
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.mux.Lock()
	srv := s.httpServer
	s.mux.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *WebServer) ApacheLogFormat() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf(`%s - - [%s] "%s %s %s" %d %d "%s" "%s"`+"\n",
			param.ClientIP,
			param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.BodySize,
			param.Request.Referer(),
			param.Request.UserAgent(),
		)
	})
}
