// cmd/mcp-server/main.go — HTTP tool server for goquad
//
// Exposes the quadrature tools as HTTP endpoints for AI agent frameworks and
// plotting front ends.
//
// Usage:
//
//	go run ./cmd/mcp-server -port 8080 -store graphics_info.csv
//
// Tool call endpoint:  POST /tool
// Direct integration:  POST /integrate
// Latest samples:      GET  /samples, GET /samples/plot.png
// Schema endpoint:     GET  /schema
// Health endpoint:     GET  /health
// Prometheus metrics:  GET  /metrics
//
// Settings come from the YAML file named by QUAD_CONFIG_FILE and QUAD_*
// environment variables; flags override both.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/njchilds90/goquad"
	"github.com/njchilds90/goquad/internal/config"
	"github.com/njchilds90/goquad/internal/logging"
)

func main() {
	conf, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	port := flag.String("port", conf.Port, "Port to listen on")
	storePath := flag.String("store", conf.StorePath, "File the latest samples are written to")
	maxN := flag.Int("max-n", conf.MaxN, "Largest n a request may ask for (0 = unlimited)")
	flag.Parse()

	logger, logFile := logging.Init(conf.Logging)
	defer logFile.Close()

	if !conf.GinDebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := newServer(goquad.NewFileStore(*storePath), *maxN)
	router := newRouter(srv, conf.AllowOrigins)

	httpSrv := &http.Server{
		Addr:              ":" + *port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("goquad MCP server listening",
		slog.String("addr", httpSrv.Addr),
		slog.String("store", *storePath),
		slog.Int("max_n", *maxN),
	)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
