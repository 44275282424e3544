// Command carsim-server serves the Auto Driving Car Simulation.
//
// Modes:
//
//	server (default)  REST API, WebSocket updates and an /mcp endpoint on one listener
//	stdio-mcp         MCP over stdin/stdout, backed by a running server or an internal one
//
// Settings come from flags, with environment fallbacks (CONFIG_DIR, SESSIONS_DIR,
// NGROK_*) that may also live in a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/carsim/api"
	"github.com/wricardo/mcp-training/carsim/game/config"
	"github.com/wricardo/mcp-training/carsim/game/service"
	"github.com/wricardo/mcp-training/carsim/game/session"
	"github.com/wricardo/mcp-training/carsim/logging"
	"github.com/wricardo/mcp-training/carsim/transport/mcp"
	"github.com/wricardo/mcp-training/carsim/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

const (
	Version = "1.0.0"
	AppName = "Auto Driving Car Simulation Server"

	defaultAPIURL   = "http://localhost:8080"
	sessionMaxAge   = 24 * time.Hour
	cleanupInterval = time.Hour
	syncInterval    = 5 * time.Second
)

var log = logging.New("main")

var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", envOr("configs", "CONFIG_DIR"), "Directory containing scenario files (env CONFIG_DIR)")
	sessionsDir  = flag.String("sessions-dir", envOr("sessions", "SESSIONS_DIR"), "Directory where sessions are persisted (env SESSIONS_DIR)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Expose the server through an ngrok tunnel (env NGROK_ENABLED)")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (env NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Reserved ngrok domain (env NGROK_DOMAIN)")
)

// envOr returns the first non-empty environment variable among keys, or fallback
func envOr(fallback string, keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return fallback
}

func init() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(out, "Usage: %s [OPTIONS] [server|stdio-mcp]\n\n", os.Args[0])
		fmt.Fprintln(out, "Modes:")
		fmt.Fprintln(out, "  server, http           REST API, WebSocket and /mcp endpoint (default)")
		fmt.Fprintln(out, "  stdio-mcp, mcp-stdio, mcp")
		fmt.Fprintln(out, "                         MCP over stdio against a running or internal API")
		fmt.Fprintln(out, "\nOptions:")
		flag.PrintDefaults()
		fmt.Fprintln(out, "\nExamples:")
		fmt.Fprintf(out, "  %s -config-dir ./configs      # serve the bundled scenarios on :8080\n", os.Args[0])
		fmt.Fprintf(out, "  %s -ngrok -port 9090          # serve on :9090 and publish a tunnel\n", os.Args[0])
		fmt.Fprintf(out, "  %s stdio-mcp                  # MCP tools for an agent\n", os.Args[0])
	}
}

func main() {
	// .env is optional
	envErr := godotenv.Load()

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		return
	}

	// stdout belongs to the MCP stdio transport
	logging.Configure(os.Stderr, *debug)

	switch {
	case envErr == nil:
		log.Info("loaded environment variables from .env file")
	case !errors.Is(envErr, os.ErrNotExist):
		log.Warn("error loading .env file", "err", envErr)
	}

	mode := "server"
	if flag.NArg() > 0 {
		mode = flag.Arg(0)
	}
	log.Info("starting", "app", AppName, "version", Version, "mode", mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	simService, err := initializeServices(ctx)
	if err != nil {
		fatal("failed to initialize services", "err", err)
	}

	switch mode {
	case "server", "http":
		runHTTPServer(ctx, simService)
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCP(ctx, simService)
	default:
		fatal("unknown mode, use 'server' (default) or 'stdio-mcp'", "mode", mode)
	}
}

func fatal(msg string, ctx ...interface{}) {
	log.Crit(msg, ctx...)
	os.Exit(1)
}

// initializeServices wires the config and session managers into the simulation
// service, restores persisted sessions and starts the maintenance loops, which
// stop when ctx is done.
func initializeServices(ctx context.Context) (service.SimulationService, error) {
	configManager, err := config.NewManager(*configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(*sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessions := session.NewManagerWithPersistence(persistence)
	if err := sessions.LoadPersistedSessions(); err != nil {
		log.Warn("failed to load persisted sessions", "err", err)
	}

	go every(ctx, cleanupInterval, func() {
		if removed := sessions.CleanupExpiredSessions(sessionMaxAge); removed > 0 {
			log.Info("cleaned up expired sessions", "count", removed)
		}
	})
	go every(ctx, syncInterval, func() {
		if pruned := sessions.PruneDeleted(); pruned > 0 {
			log.Info("filesystem sync pruned orphaned sessions", "count", pruned)
		}
	})

	return service.NewSimulationService(sessions, configManager), nil
}

// every calls fn on each tick until ctx is done
func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// newAPIHandler starts a hub and returns the REST/WebSocket handler around simService
func newAPIHandler(simService service.SimulationService) http.Handler {
	hub := websocket.NewHub()
	go hub.Run()
	return api.NewServer(simService, hub)
}

// mcpHandler serves single JSON-RPC MCP messages over POST
func mcpHandler(tools *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}

		data, err := json.Marshal(tools.HandleMessage(r.Context(), body))
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

func runHTTPServer(ctx context.Context, simService service.SimulationService) {
	addr := net.JoinHostPort(*host, fmt.Sprint(*port))
	baseURL := "http://" + addr

	mux := http.NewServeMux()
	mux.Handle("/", newAPIHandler(simService))
	mux.HandleFunc("/mcp", mcpHandler(mcp.NewClient(baseURL).GetMCPServer()))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("HTTP server listening", "api", baseURL+"/api",
			"ws", "ws://"+addr+"/ws?session=<session_id>", "mcp", baseURL+"/mcp")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("HTTP server failed", "err", err)
		}
	}()

	if tunnel := resolveTunnel(); tunnel.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveTunnel(ctx, tunnel, mux)
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "err", err)
	}

	wg.Wait()
	log.Info("server stopped")
}

// tunnelSettings is the resolved ngrok configuration
type tunnelSettings struct {
	Enabled   bool
	AuthToken string
	Domain    string
}

// resolveTunnel merges the ngrok flags with their environment fallbacks
func resolveTunnel() tunnelSettings {
	enabled := *ngrokEnabled
	if v := os.Getenv("NGROK_ENABLED"); v == "true" || v == "1" {
		enabled = true
	}

	settings := tunnelSettings{
		Enabled:   enabled,
		AuthToken: *ngrokAuth,
		Domain:    *ngrokDomain,
	}
	if settings.AuthToken == "" {
		settings.AuthToken = envOr("", "NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")
	}
	if settings.Domain == "" {
		settings.Domain = os.Getenv("NGROK_DOMAIN")
	}
	return settings
}

// serveTunnel publishes handler through ngrok until ctx is done
func serveTunnel(ctx context.Context, settings tunnelSettings, handler http.Handler) {
	if settings.AuthToken == "" {
		log.Warn("ngrok enabled but no auth token provided (use -ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	var opts []ngrokConfig.HTTPEndpointOption
	if settings.Domain != "" {
		opts = append(opts, ngrokConfig.WithDomain(settings.Domain))
	}

	tun, err := ngrok.Listen(ctx, ngrokConfig.HTTPEndpoint(opts...), ngrok.WithAuthtoken(settings.AuthToken))
	if err != nil {
		log.Error("failed to start ngrok tunnel", "err", err)
		return
	}

	publicURL := tun.URL()
	log.Info("ngrok tunnel established", "url", publicURL,
		"api", publicURL+"/api", "mcp", publicURL+"/mcp")

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn("failed to close ngrok tunnel", "err", err)
		}
	}()

	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		log.Error("ngrok server error", "err", err)
	}
	log.Info("ngrok tunnel closed")
}

// apiAvailable reports whether a simulation API answers at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// startInternalAPI serves simService on a random loopback port and returns its base URL
func startInternalAPI(ctx context.Context, simService service.SimulationService) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}

	httpServer := &http.Server{Handler: newAPIHandler(simService)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("internal HTTP server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	return "http://" + listener.Addr().String(), nil
}

// runStdioMCP serves MCP over stdio. Tools target a server already running on
// the default port when there is one, otherwise an internal API.
func runStdioMCP(ctx context.Context, simService service.SimulationService) {
	baseURL := defaultAPIURL
	if apiAvailable(ctx, baseURL) {
		log.Info("external API server found, using it for MCP", "url", baseURL)
	} else {
		var err error
		if baseURL, err = startInternalAPI(ctx, simService); err != nil {
			fatal("failed to start internal HTTP server", "err", err)
		}
		log.Info("started internal HTTP server for MCP stdio", "url", baseURL)
	}

	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		fatal("MCP stdio server error", "err", err)
	}
}
