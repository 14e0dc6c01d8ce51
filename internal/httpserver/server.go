// Package httpserver serves a read-only HTTP view of the history.
package httpserver

import (
	"context"
	"fmt"
	"log"
	"maps"
	"net"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/logluts/internal/model"
	"github.com/tinytelemetry/logluts/internal/report"
	"github.com/tinytelemetry/logluts/internal/timeline"
)

// DefaultAddr is used when NewServer is given an empty address.
const DefaultAddr = "127.0.0.1:3000"

// QueryStore is the narrow store contract required by the HTTP API.
type QueryStore interface {
	model.SchemaQuerier
	model.Summarizer
	LargestSteps(metric string, limit int) ([]model.Step, error)
	SchemaVersion() (current, pending int, err error)
}

// Server provides an HTTP API over the history file.
type Server struct {
	addr     string
	history  model.HistoryReader
	resolver model.CommitResolver
	store    QueryStore

	// loadMu serializes reloading the store from the history file.
	loadMu sync.Mutex

	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server. The history is re-read on every
// request, so appends show up without a restart.
func NewServer(addr string, history model.HistoryReader, resolver model.CommitResolver, store QueryStore) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		history:   history,
		resolver:  resolver,
		store:     store,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/history", s.handleHistory)
	r.GET("/api/points", s.handlePoints)
	r.GET("/api/summary", s.handleSummary)
	r.GET("/api/steps", s.handleSteps)
	r.GET("/api/schema", s.handleSchema)
	r.POST("/api/query", s.handleQuery)
	r.GET("/chart", s.handleChart)
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
		return err
	}
	s.listener = listener
	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("httpserver: serve: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
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

// reload reads the history file and refreshes the query store from it.
func (s *Server) reload() ([]model.Record, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	records, err := s.history.LoadAll()
	if err != nil {
		return nil, err
	}
	if err := s.store.Load(records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Server) fail(c *gin.Context, status int, what string, err error) {
	log.Printf("httpserver: %s: %v", what, err)
	c.JSON(status, gin.H{"error": fmt.Sprintf("%s: %v", what, err)})
}

func (s *Server) handleHealth(c *gin.Context) {
	records, err := s.reload()
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to read history", err)
		return
	}
	version, pending, err := s.store.SchemaVersion()
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to read schema version", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"uptime":             time.Since(s.startTime).String(),
		"row_count":          len(records),
		"schema_version":     version,
		"pending_migrations": pending,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	records, err := s.reload()
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to read history", err)
		return
	}
	if records == nil {
		records = []model.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "row_count": len(records)})
}

func (s *Server) points(c *gin.Context) ([]model.Point, bool) {
	records, err := s.reload()
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to read history", err)
		return nil, false
	}
	points, err := timeline.Prepare(c.Request.Context(), records, s.resolver)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to resolve commits", err)
		return nil, false
	}
	return points, true
}

func (s *Server) handlePoints(c *gin.Context) {
	points, ok := s.points(c)
	if !ok {
		return
	}
	if points == nil {
		points = []model.Point{}
	}
	c.JSON(http.StatusOK, gin.H{"points": points, "row_count": len(points)})
}

func (s *Server) handleSummary(c *gin.Context) {
	if _, err := s.reload(); err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to read history", err)
		return
	}
	summary, err := s.store.Summary()
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to summarize history", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleSteps(c *gin.Context) {
	metric := c.DefaultQuery("metric", model.MetricLUTs)
	if !slices.Contains(model.Metrics, metric) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown metric %q", metric)})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	if _, err := s.reload(); err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to read history", err)
		return
	}
	steps, err := s.store.LargestSteps(metric, limit)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to compute steps", err)
		return
	}
	if steps == nil {
		steps = []model.Step{}
	}
	c.JSON(http.StatusOK, gin.H{"metric": metric, "steps": steps})
}

func (s *Server) handleSchema(c *gin.Context) {
	if _, err := s.reload(); err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to read history", err)
		return
	}
	description := s.store.GetSchemaDescription()

	tables, err := s.store.ExecuteQuery(
		"SELECT table_name, column_name, data_type FROM information_schema.columns WHERE table_schema = 'main' AND table_name <> 'schema_migrations' ORDER BY table_name, ordinal_position",
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read schema metadata"})
		return
	}

	schema := make(map[string][]map[string]string)
	for _, row := range tables {
		tableName := fmt.Sprintf("%v", row["table_name"])
		schema[tableName] = append(schema[tableName], map[string]string{
			"column": fmt.Sprintf("%v", row["column_name"]),
			"type":   fmt.Sprintf("%v", row["data_type"]),
		})
	}

	counts, err := s.store.TableRowCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read table row counts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"description": description,
		"tables":      schema,
		"row_counts":  counts,
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req struct {
		SQL string `json:"sql" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing sql field"})
		return
	}
	if _, err := s.reload(); err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to read history", err)
		return
	}

	results, err := s.store.ExecuteQuery(req.SQL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	columns := []string{}
	if len(results) > 0 {
		columns = slices.Sorted(maps.Keys(results[0]))
	}

	c.JSON(http.StatusOK, gin.H{
		"columns":   columns,
		"rows":      results,
		"row_count": len(results),
	})
}

func (s *Server) handleChart(c *gin.Context) {
	points, ok := s.points(c)
	if !ok {
		return
	}
	if len(points) == 0 {
		c.String(http.StatusNotFound, "history is empty")
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := report.WriteHTML(c.Writer, points); err != nil {
		log.Printf("httpserver: render chart: %v", err)
	}
}
