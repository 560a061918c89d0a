// Command server runs the in-memory notes API for local development, seeded
// with an admin and a regular account.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuitang/notes-client/internal/apitest"
	"github.com/kuitang/notes-client/internal/logutil"
	"github.com/kuitang/notes-client/internal/model"
	"github.com/kuitang/notes-client/internal/obs"
)

type seedOptions struct {
	adminEmail string
	userEmail  string
	password   string
}

func main() {
	obs.Init()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var addr string
	seed := seedOptions{}
	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Serve a fake notes API for trying the client locally",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			backend := newBackend(seed)
			base := "http://" + ln.Addr().String()
			fmt.Fprintf(out, "Fake notes API on %s/api\n", base)
			fmt.Fprintf(out, "  admin: %s / %s\n", seed.adminEmail, seed.password)
			fmt.Fprintf(out, "  user:  %s / %s\n", seed.userEmail, seed.password)
			fmt.Fprintf(out, "Point the client at it with NOTES_API_URL=%s/api\n", base)
			return serve(cmd.Context(), ln, withRequestLog(backend.Handler()))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&seed.adminEmail, "admin-email", "admin@example.com", "seeded admin account")
	cmd.Flags().StringVar(&seed.userEmail, "user-email", "user@example.com", "seeded regular account")
	cmd.Flags().StringVar(&seed.password, "password", "password", "password of both seeded accounts")
	return cmd
}

func newBackend(seed seedOptions) *apitest.Backend {
	b := apitest.New()
	admin := b.AddUser("Admin", seed.adminEmail, seed.password, model.RoleUser, model.RoleAdmin)
	user := b.AddUser("User", seed.userEmail, seed.password)
	b.AddNote(admin.ID, "Welcome", "This server keeps everything in memory.", "")
	b.AddNote(user.ID, "Shopping", "- milk\n- eggs", "")
	return b
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func withRequestLog(next http.Handler) http.Handler {
	log := obs.Pkg("server")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"request_id", r.Header.Get("X-Request-Id"),
			"dur_ms", float64(time.Since(started).Microseconds())/1000.0,
			"headers", logutil.Headers(r.Header))
	})
}

func serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
