package mcp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kuitang/notes-client/internal/logutil"
	"github.com/kuitang/notes-client/internal/notes"
	"github.com/kuitang/notes-client/internal/obs"
)

// Path is where the bridge mounts its Streamable HTTP endpoint.
const Path = "/mcp"

const (
	serverName    = "notes-client"
	serverVersion = "1.0.0"

	errorBodyLogLimit = 2 * 1024
	shutdownTimeout   = 5 * time.Second
)

// ErrTokenRequired is returned by Serve when no bearer token is configured.
var ErrTokenRequired = errors.New("mcp: a bearer token is required to serve the bridge")

// Options configure the HTTP surface of the bridge.
type Options struct {
	Token          string   // bearer token every request must carry
	AllowedOrigins []string // browser origins allowed to call the bridge
}

// Server wraps the MCP server with notes handling.
type Server struct {
	mcpServer   *mcp.Server
	handler     *Handler
	httpHandler http.Handler
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
	body       []byte
}

func (w *responseRecorder) WriteHeader(code int) {
	if !w.wrote {
		w.statusCode = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(p []byte) (int, error) {
	if !w.wrote {
		w.statusCode = http.StatusOK
		w.wrote = true
	}
	if w.statusCode >= http.StatusBadRequest && len(w.body) < errorBodyLogLimit {
		w.body = append(w.body, p[:min(len(p), errorBodyLogLimit-len(w.body))]...)
	}
	return w.ResponseWriter.Write(p)
}

func (w *responseRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// NewServer creates an MCP server over store. auth gates every tool except
// shared_note_view; shareOrigin is the origin of generated share links.
func NewServer(store *notes.Store, auth Authorizer, shareOrigin string) *Server {
	handler := NewHandler(store, auth, shareOrigin)

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: serverVersion,
		},
		nil,
	)
	for _, tool := range ToolDefinitions() {
		mcp.AddTool(mcpServer, tool, handler.createToolHandler(tool.Name))
	}
	registerPrompts(mcpServer)

	// Stateless with plain JSON responses: each POST stands alone and clients
	// without SSE support still work.
	httpHandler := mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return mcpServer },
		&mcp.StreamableHTTPOptions{
			JSONResponse: true,
			Stateless:    true,
		},
	)

	return &Server{
		mcpServer:   mcpServer,
		handler:     handler,
		httpHandler: httpHandler,
	}
}

// ServeHTTP implements http.Handler for the Streamable HTTP transport.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ctx, requestID := obs.EnsureRequestID(r.Context())
	r = r.WithContext(ctx)
	logger := obs.From(ctx).With("pkg", "mcp", "method", r.Method, "path", r.URL.Path)
	logger.Debug("mcp_request", "remote", r.RemoteAddr, "headers", logutil.Headers(r.Header))

	rec := &responseRecorder{ResponseWriter: w}
	defer func() {
		if v := recover(); v != nil {
			logger.Error("mcp_handler_panic", "panic", v, "request_id", requestID)
			if !rec.wrote {
				http.Error(rec, "Internal server error", http.StatusInternalServerError)
			}
			return
		}
		if !rec.wrote {
			logger.Error("mcp_handler_no_response")
			http.Error(rec, "MCP handler returned without writing response", http.StatusInternalServerError)
			return
		}
		if rec.statusCode >= http.StatusBadRequest {
			logger.Warn("mcp_request_failed",
				"status", rec.statusCode,
				"response", logutil.Truncate(string(rec.body), errorBodyLogLimit))
		}
	}()

	s.httpHandler.ServeHTTP(rec, r)
}

// Handler returns the bridge mounted at Path behind the origin and bearer
// checks.
func (s *Server) Handler(opts Options) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(Path, AllowOrigins(opts.AllowedOrigins, RequireBearer(opts.Token, s)))
	return mux
}

// ListenAndServe serves the bridge on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, opts Options) error {
	if opts.Token == "" {
		return ErrTokenRequired
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, opts)
}

// Serve is ListenAndServe on an existing listener. It closes ln when it
// refuses to start.
func (s *Server) Serve(ctx context.Context, ln net.Listener, opts Options) error {
	if opts.Token == "" {
		ln.Close()
		return ErrTokenRequired
	}
	srv := &http.Server{
		Handler:           s.Handler(opts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		obs.Pkg("mcp").Info("mcp_listening", "addr", ln.Addr().String(), "path", Path)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		obs.Pkg("mcp").Info("mcp_stopped")
		return nil
	}
}
