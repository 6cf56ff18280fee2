// Command webcrawl serves the travel content-acquisition service over a
// JSON HTTP API and optionally MCP. MCP_TRANSPORT selects the MCP mode:
// "stdio" serves MCP on stdin/stdout (no HTTP), "http" mounts a
// streamable MCP endpoint at /mcp next to the API, empty disables MCP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/tripsage/webcrawl/crawl"
	"github.com/tripsage/webcrawl/dbopen"
	"github.com/tripsage/webcrawl/kit"
	"github.com/tripsage/webcrawl/shield"
)

func main() {
	fc, err := loadConfig(env("CONFIG_FILE", ""))
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	port := env("PORT", fc.Port)
	dbPath := env("DB_PATH", fc.DBPath)
	mcpTransport := env("MCP_TRANSPORT", "")
	logLevel := env("LOG_LEVEL", fc.LogLevel)

	// Logging. MCP on stdio owns stdout, so logs move to stderr there.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logOut := os.Stdout
	if mcpTransport == "stdio" {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := dbopen.Open(dbPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("open db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := shield.Init(db); err != nil {
		slog.Error("shield schema", "error", err)
		os.Exit(1)
	}

	// Crawl service. Adapter availability is config-driven: the browser
	// drops out without Chrome, hosted search without an API key.
	svc, err := crawl.New(db, &crawl.Config{
		UserAgent:        fc.UserAgent,
		BrowserRemoteURL: env("BROWSER_REMOTE", fc.Browser.Remote),
		DisableBrowser:   fc.Browser.Disabled,
		SearchAPIHost:    fc.Search.Host,
		SearchAPIKey:     env("SEARCH_API_KEY", fc.Search.Key),
		DefaultCurrency:  fc.DefaultCurrency,
		MaxTopicResults:  fc.MaxTopicResults,
		MaxBlogs:         fc.MaxBlogs,
	}, logger)
	if err != nil {
		slog.Error("crawl service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	// Background maintenance: due price monitors and cache pruning.
	monitorEvery, pruneEvery := fc.intervals()
	go maintenanceLoop(ctx, svc, monitorEvery, pruneEvery)

	// MCP server, shared between transports.
	mcpSrv := mcp.NewServer(&mcp.Implementation{
		Name:    "webcrawl",
		Version: "1.0.0",
	}, nil)
	svc.RegisterMCP(mcpSrv)

	if mcpTransport == "stdio" {
		slog.Info("MCP serving on stdio")
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("mcp stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	// Router.
	r := chi.NewRouter()
	stack, rl := shield.DefaultStack(db)
	for _, mw := range stack {
		r.Use(mw)
	}
	rlDone := make(chan struct{})
	defer close(rlDone)
	rl.StartReloader(rlDone)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	if mcpTransport == "http" {
		r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil))
		slog.Info("MCP mounted", "path", "/mcp")
	}

	r.Post("/api/extract", func(w http.ResponseWriter, r *http.Request) {
		var req crawl.ExtractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, 400, err)
			return
		}
		res, err := svc.ExtractPageContent(r.Context(), &req)
		writeResult(w, r, res, err)
	})

	r.Post("/api/destinations", func(w http.ResponseWriter, r *http.Request) {
		var req crawl.SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, 400, err)
			return
		}
		res, err := svc.SearchDestinationInfo(r.Context(), &req)
		writeResult(w, r, res, err)
	})

	r.Post("/api/events", func(w http.ResponseWriter, r *http.Request) {
		var req crawl.EventsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, 400, err)
			return
		}
		res, err := svc.GetLatestEvents(r.Context(), &req)
		writeResult(w, r, res, err)
	})

	r.Post("/api/blogs", func(w http.ResponseWriter, r *http.Request) {
		var req crawl.BlogRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, 400, err)
			return
		}
		res, err := svc.CrawlTravelBlog(r.Context(), &req)
		writeResult(w, r, res, err)
	})

	r.Post("/api/monitors", func(w http.ResponseWriter, r *http.Request) {
		var req crawl.MonitorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, 400, err)
			return
		}
		res, err := svc.MonitorPriceChanges(r.Context(), &req)
		writeResult(w, r, res, err)
	})

	r.Get("/api/monitors", func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.ListPriceMonitors(r.Context())
		writeResult(w, r, res, err)
	})

	r.Get("/api/monitors/{monitorID}", func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GetPriceMonitor(r.Context(), chi.URLParam(r, "monitorID"))
		writeResult(w, r, res, err)
	})

	r.Delete("/api/monitors/{monitorID}", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeletePriceMonitor(r.Context(), chi.URLParam(r, "monitorID")); err != nil {
			writeResult(w, r, nil, err)
			return
		}
		writeJSON(w, 200, map[string]string{"status": "deleted"})
	})

	r.Post("/api/monitors/check", func(w http.ResponseWriter, r *http.Request) {
		count, err := svc.CheckDueMonitors(r.Context())
		if err != nil {
			writeError(w, r, 500, err)
			return
		}
		writeJSON(w, 200, map[string]any{"status": "ok", "checked": count})
	})

	r.Get("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Stats(r.Context())
		writeResult(w, r, res, err)
	})

	// HTTP server.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// maintenanceLoop runs due price monitor checks and store pruning until
// the context is cancelled.
func maintenanceLoop(ctx context.Context, svc *crawl.Service, checkEvery, pruneEvery time.Duration) {
	checkTick := time.NewTicker(checkEvery)
	pruneTick := time.NewTicker(pruneEvery)
	defer checkTick.Stop()
	defer pruneTick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-checkTick.C:
			n, err := svc.CheckDueMonitors(ctx)
			if err != nil {
				slog.Warn("monitor checks", "error", err)
			} else if n > 0 {
				slog.Info("price monitors checked", "count", n)
			}
		case <-pruneTick.C:
			if err := svc.Prune(ctx); err != nil {
				slog.Warn("prune", "error", err)
			}
		}
	}
}

// --- Helpers ---

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError emits the plain error object, tagged with the request's
// trace ID when the middleware stack set one.
func writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	body := map[string]string{"error": err.Error()}
	if id := kit.GetTraceID(r.Context()); id != "" {
		body["trace_id"] = id
	}
	writeJSON(w, code, body)
}

// writeResult maps service errors onto the API contract: validation
// failures keep their structured {error, message} shape with a 400,
// missing monitors are 404, anything else is logged and becomes a 500.
func writeResult(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		if ve, ok := crawl.AsValidation(err); ok {
			writeJSON(w, 400, ve)
			return
		}
		if errors.Is(err, crawl.ErrMonitorNotFound) {
			writeError(w, r, 404, err)
			return
		}
		shield.GetLogger(r.Context()).Error("request failed", "error", err)
		writeError(w, r, 500, err)
		return
	}
	writeJSON(w, 200, v)
}
