package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/trellis/internal/component"
	"github.com/tinytelemetry/trellis/internal/state"
	"github.com/tinytelemetry/trellis/internal/trace"
)

// Inspector is the narrow process contract required by the HTTP API.
type Inspector interface {
	State() *state.Record
	Dispatch(msg component.Msg) component.Settled
	Location() string
}

// TraceSource serves recorded messages.
type TraceSource interface {
	Recent(n int) []trace.Entry
	Counts() map[string]int
	Total() uint64
}

// Server provides an HTTP API for inspecting and driving a running process.
type Server struct {
	addr      string
	proc      Inspector
	traces    TraceSource
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server. traces may be nil.
func NewServer(addr string, proc Inspector, traces TraceSource) *Server {
	if addr == "" {
		addr = "127.0.0.1:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		proc:      proc,
		traces:    traces,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Handler builds the API routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/state", s.handleState)
	api.GET("/messages", s.handleMessages)
	api.GET("/messages/counts", s.handleCounts)
	api.POST("/navigate", s.handleNavigate)
	api.POST("/reload", s.handleReload)
	api.POST("/toast", s.handleToast)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen: %w", err)
	}

	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":   "ok",
		"uptime":   time.Since(s.startTime).String(),
		"location": s.proc.Location(),
	}
	if s.traces != nil {
		body["messages"] = s.traces.Total()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.proc.State())
}

func (s *Server) handleMessages(c *gin.Context) {
	if s.traces == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "message tracing is disabled"})
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	entries := s.traces.Recent(limit)
	c.JSON(http.StatusOK, gin.H{
		"messages": entries,
		"count":    len(entries),
		"total":    s.traces.Total(),
	})
}

func (s *Server) handleCounts(c *gin.Context) {
	if s.traces == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "message tracing is disabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"counts": s.traces.Counts(),
		"total":  s.traces.Total(),
	})
}

func (s *Server) handleNavigate(c *gin.Context) {
	var req struct {
		URL     string `json:"url" binding:"required"`
		Replace bool   `json:"replace"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing url field"})
		return
	}

	var msg component.Msg = component.NewURL{URL: req.URL}
	if req.Replace {
		msg = component.ReplaceURL{URL: req.URL}
	}
	if !s.settle(c, s.proc.Dispatch(msg)) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": s.proc.Location()})
}

func (s *Server) handleReload(c *gin.Context) {
	if !s.settle(c, s.proc.Dispatch(component.Reload{})) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": s.proc.Location()})
}

func (s *Server) handleToast(c *gin.Context) {
	var req struct {
		Kind  string `json:"kind"`
		Title string `json:"title" binding:"required"`
		Body  string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing title field"})
		return
	}
	kind := component.ToastKind(req.Kind)
	switch kind {
	case "":
		kind = component.ToastInfo
	case component.ToastInfo, component.ToastSuccess, component.ToastWarning, component.ToastError:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown toast kind %q", req.Kind)})
		return
	}
	s.proc.Dispatch(component.Toast{Kind: kind, Title: req.Title, Body: req.Body})
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// settle waits, when the request asks with ?wait=true, for the effects of a
// dispatch to finish. It reports false once it has written an error.
func (s *Server) settle(c *gin.Context, done component.Settled) bool {
	if wait, _ := strconv.ParseBool(c.Query("wait")); !wait {
		return true
	}
	select {
	case <-done:
		return true
	case <-c.Request.Context().Done():
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request cancelled before effects settled"})
		return false
	}
}
