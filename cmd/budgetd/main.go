// ABOUTME: Entry point for the budgetd envelope budget server
// ABOUTME: Serves the REST API and MCP tools over a DuckDB/MotherDuck store

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/budgetd/envelopes/internal/api"
	"github.com/budgetd/envelopes/internal/auth"
	"github.com/budgetd/envelopes/internal/config"
	"github.com/budgetd/envelopes/internal/mcp"
	"github.com/budgetd/envelopes/internal/service"
	"github.com/budgetd/envelopes/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _               _            _      _
| |__  _   _  __| | __ _  ___| |_ __| |
| '_ \| | | |/ _' |/ _' |/ _ \ __/ _' |
| |_) | |_| | (_| | (_| |  __/ || (_| |
|_.__/ \__,_|\__,_|\__, |\___|\__\__,_|
                   |___/
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: budgetd <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                 Start the budget server")
		fmt.Println("  init                  Write a starter config file")
		fmt.Println("  token <subject> [ttl] Generate an API token (default ttl 720h)")
		fmt.Println("  health                Check server health")
		fmt.Println("  status                Show cloud connection status")
		fmt.Println("  sync <to|from>        Sync with MotherDuck")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "token":
		err = runToken()
	case "health":
		err = runHealth(ctx)
	case "status":
		err = runStatus(ctx)
	case "sync":
		err = runSync(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the resolved config file, falling back to defaults when
// none exists yet.
func loadConfig() (*config.Config, string, error) {
	path := config.ResolvePath("")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.Defaults(), path, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func runServe(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	mode, err := store.ParseMode(cfg.Storage.Mode)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Mode:    %s\n", mode)
	green.Print("    ▶ ")
	fmt.Printf("Data:    %s\n", cfg.Storage.Path)
	fmt.Println()

	logger.Info("starting budgetd",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"mode", mode,
	)

	db, err := store.Open(store.Config{
		Path:     cfg.Storage.Path,
		Mode:     mode,
		Token:    cfg.Storage.MotherDuckToken,
		Database: cfg.Storage.MotherDuckDatabase,
	}, logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if state := db.State(); state.Fallback {
		logger.Warn("running degraded",
			"requested_mode", state.RequestedMode,
			"effective_mode", state.EffectiveMode,
		)
	}

	svc := service.New(db, logger)

	var verifier auth.TokenVerifier
	if cfg.Auth.Enabled {
		verifier = auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	}

	mux := http.NewServeMux()
	api.New(svc, logger).RegisterRoutes(mux)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Service:       svc,
		Logger:        logger,
		TokenVerifier: verifier,
		RequireAuth:   cfg.Auth.Enabled,
	})
	if err != nil {
		return fmt.Errorf("creating mcp server: %w", err)
	}
	mcpServer.RegisterRoutes(mux)

	var handler http.Handler = mux
	if cfg.Auth.Enabled {
		handler = protectAPI(verifier, mux)
	}

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// protectAPI wraps the /api/ subtree with bearer auth. Health and the MCP
// endpoint manage their own access.
func protectAPI(verifier auth.TokenVerifier, next http.Handler) http.Handler {
	protected := auth.Middleware(verifier)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			protected.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const configTemplate = `server:
  http_addr: "127.0.0.1:8080"

storage:
  # Local DuckDB file, or ":memory:" for a throwaway database
  path: "./budget.db"
  # local, cloud, or hybrid
  mode: "local"
  # Required for cloud and hybrid modes
  motherduck_token: "${MOTHERDUCK_TOKEN}"
  motherduck_database: "budget_app"

auth:
  enabled: false
  jwt_secret: "${BUDGETD_JWT_SECRET}"

logging:
  level: "info"
  format: "text"
`

func runInit() error {
	path := config.ResolvePath("")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func runToken() error {
	if len(os.Args) < 3 {
		return errors.New("usage: budgetd token <subject> [ttl]")
	}
	subject := os.Args[2]

	ttl := 720 * time.Hour
	if len(os.Args) > 3 {
		parsed, err := time.ParseDuration(os.Args[3])
		if err != nil {
			return fmt.Errorf("parsing ttl: %w", err)
		}
		ttl = parsed
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not configured")
	}

	token, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).Generate(subject, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	fmt.Println(token)
	return nil
}

func runHealth(ctx context.Context) error {
	if _, err := apiGet(ctx, "/health"); err != nil {
		return err
	}
	fmt.Println("healthy")
	return nil
}

func runStatus(ctx context.Context) error {
	body, err := apiGet(ctx, "/api/cloud/status")
	if err != nil {
		return err
	}

	var status store.ConnectionStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return fmt.Errorf("parsing status: %w", err)
	}

	fmt.Printf("mode:            %s\n", status.Mode)
	fmt.Printf("cloud connected: %v\n", status.CloudConnected)
	if status.Database != "" {
		fmt.Printf("database:        %s\n", status.Database)
	}
	if status.Warning != "" {
		color.New(color.FgYellow).Printf("warning:         %s\n", status.Warning)
	}
	return nil
}

func runSync(ctx context.Context) error {
	if len(os.Args) < 3 || (os.Args[2] != "to" && os.Args[2] != "from") {
		return errors.New("usage: budgetd sync <to|from>")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/api/cloud/sync/%s", cfg.Server.HTTPAddr, os.Args[2])
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("sync request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sync failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result store.SyncResult
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parsing result: %w", err)
	}
	fmt.Printf("envelopes synced:    %d\n", result.EnvelopesSynced)
	fmt.Printf("transactions synced: %d\n", result.TransactionsSynced)
	for _, e := range result.Errors {
		color.New(color.FgYellow).Printf("error: %s\n", e)
	}
	return nil
}

func apiGet(ctx context.Context, path string) ([]byte, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s%s", cfg.Server.HTTPAddr, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
