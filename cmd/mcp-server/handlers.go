package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/njchilds90/goquad"
	"github.com/njchilds90/goquad/internal/metrics"
	"github.com/njchilds90/goquad/plot"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// server owns the engine and its sample store. Every handler touching either
// holds mu, so a computation and its write to the store finish before the
// next request reads or replaces the samples.
type server struct {
	mu     sync.Mutex
	engine *goquad.Engine
	tools  *goquad.ToolSet
	maxN   int
}

func newServer(store goquad.SampleStore, maxN int) *server {
	engine := goquad.NewEngine(store)
	engine.Observe = metrics.ObserveIntegration
	return &server{
		engine: engine,
		tools:  goquad.NewToolSet(engine, maxN),
		maxN:   maxN,
	}
}

func newRouter(s *server, allowOrigins []string) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(requestLogger(), gin.CustomRecovery(recoverPanic))
	router.Use(cors.New(corsConfig(allowOrigins)))

	router.GET("/health", healthCheckHandle)
	router.GET("/schema", schemaHandle)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.POST("/tool", s.toolCall)
	router.POST("/integrate", s.integrate)
	router.GET("/samples", s.samples)
	router.GET("/samples/plot.png", s.samplesPlot)
	return router
}

func corsConfig(allowOrigins []string) cors.Config {
	conf := cors.Config{
		AllowMethods:  []string{"POST", "GET"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length"},
		ExposeHeaders: []string{"Content-Type", "Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range allowOrigins {
		if o == "*" {
			conf.AllowAllOrigins = true
			return conf
		}
	}
	if len(allowOrigins) == 0 {
		conf.AllowAllOrigins = true
		return conf
	}
	conf.AllowOrigins = allowOrigins
	return conf
}

// ============================================================
// Middleware
// ============================================================

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

func recoverPanic(c *gin.Context, rec any) {
	slog.Error("panic in handler", slog.String("path", c.Request.URL.Path), slog.Any("panic", rec))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// ============================================================
// Handlers
// ============================================================

func healthCheckHandle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func schemaHandle(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", []byte(goquad.MCPToolSpec()))
}

// POST /tool: tool failures are reported in the response body with status 200.
func (s *server) toolCall(c *gin.Context) {
	var req goquad.ToolRequest
	if err := decodeStrict(c, &req); err != nil {
		badBody(c, err)
		return
	}

	s.mu.Lock()
	resp := s.tools.HandleToolCall(req)
	s.mu.Unlock()

	metrics.ObserveToolCall(req.Tool, resp.Error != "")
	if resp.Error != "" {
		slog.Debug("tool call failed", slog.String("tool", req.Tool), slog.String("error", resp.Error))
	}
	c.JSON(http.StatusOK, resp)
}

type integrateReq struct {
	Expr string      `json:"expr"`
	A    float64     `json:"a"`
	B    float64     `json:"b"`
	N    int         `json:"n"`
	Rule goquad.Rule `json:"rule"`
}

func (s *server) integrate(c *gin.Context) {
	var req integrateReq
	if err := decodeStrict(c, &req); err != nil {
		badBody(c, err)
		return
	}
	if req.Rule == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing rule"})
		return
	}
	if s.maxN > 0 && req.N > s.maxN {
		c.JSON(http.StatusBadRequest, gin.H{"error": "n exceeds the configured maximum", "max_n": s.maxN})
		return
	}

	s.mu.Lock()
	res, err := s.engine.Integrate(req.Rule, req.Expr, req.A, req.B, req.N)
	s.mu.Unlock()

	if err != nil {
		var pe *goquad.ParseError
		if errors.As(err, &pe) {
			c.JSON(http.StatusBadRequest, gin.H{"error": pe.Error(), "offset": pe.Pos})
			return
		}
		slog.Error("integration failed", slog.String("expr", req.Expr), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	slog.Info("integrated",
		slog.String("rule", req.Rule.String()),
		slog.String("expr", req.Expr),
		slog.Int("n", req.N),
		slog.Float64("estimate", res.Estimate),
	)
	c.JSON(http.StatusOK, res)
}

func (s *server) samples(c *gin.Context) {
	set, ok := s.readSamples(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *server) samplesPlot(c *gin.Context) {
	set, ok := s.readSamples(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	err := plot.Render(&buf, set, plot.Options{Title: c.Query("title")})
	if errors.Is(err, plot.ErrNoSamples) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("plot failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// readSamples writes the error response itself and reports false on failure.
func (s *server) readSamples(c *gin.Context) (goquad.SampleSet, bool) {
	if s.engine.Store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no sample store configured"})
		return goquad.SampleSet{}, false
	}
	s.mu.Lock()
	set, err := s.engine.Store.Read()
	s.mu.Unlock()
	switch {
	case err == nil:
		return set, true
	case errors.Is(err, fs.ErrNotExist):
		c.JSON(http.StatusNotFound, gin.H{"error": "no samples recorded yet"})
	default:
		slog.Error("reading samples failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
	return goquad.SampleSet{}, false
}

// ============================================================
// Request decoding
// ============================================================

// decodeStrict decodes exactly one JSON value from a size-limited body,
// rejecting unknown fields and trailing data.
func decodeStrict(c *gin.Context, v interface{}) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("invalid JSON: trailing data")
	}
	return nil
}

func badBody(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
