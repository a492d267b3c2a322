// Package server provides the local preview server for a rendered site.
// It serves the build artifact tree as plain static files; nothing is
// rendered at request time.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/euforicio/blogmd/internal/config"
)

// Server wraps the HTTP server serving the output directory.
type Server struct {
	mux        *http.ServeMux
	httpServer *http.Server
	logger     *slog.Logger
	cfg        config.Config
	urlCh      chan string
}

// New constructs a preview server over the configured output directory.
func New(cfg config.Config, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		cfg:    cfg,
		mux:    mux,
		logger: logger.With("component", "http"),
		urlCh:  make(chan string, 1),
	}

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	files := s.fileHandler()
	// "GET /" also matches HEAD requests under net/http's ServeMux; a
	// separate "HEAD /" registration conflicts with "GET /healthz".
	s.mux.Handle("GET /", files)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// fileHandler serves the artifact tree with caching disabled so edits
// show up on plain reload during preview.
func (s *Server) fileHandler() http.Handler {
	fileServer := http.FileServer(http.Dir(s.cfg.OutputDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")

		// FileServer maps a bare directory request to index.html; a
		// missing tree means the render step never ran.
		if _, err := os.Stat(s.cfg.OutputDir); err != nil {
			s.logger.ErrorContext(r.Context(), "output dir unavailable",
				slog.String("dir", s.cfg.OutputDir), slog.Any("err", err))
			http.Error(w, "site not built", http.StatusServiceUnavailable)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// Start runs the HTTP server and optionally opens the browser.
// With Port 0 a free port is allocated; otherwise the configured port is
// bound. Blocks until the context is canceled or the server fails.
func (s *Server) Start(ctx context.Context) error {
	handler := chain(s.mux,
		recoveryMiddleware,
		gzipMiddleware,
		loggingMiddleware(s.logger, s.cfg.Verbose),
	)

	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var (
		listener  net.Listener
		serverURL string
		err       error
	)

	if s.cfg.Port == 0 {
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("allocate port: %w", err)
		}
	} else {
		listener, err = net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
		if err != nil {
			return fmt.Errorf("bind port %d: %w", s.cfg.Port, err)
		}
	}

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return errors.New("unexpected listener address type")
	}
	serverURL = fmt.Sprintf("http://localhost:%d", tcpAddr.Port)

	select {
	case s.urlCh <- serverURL:
	default:
	}

	errCh := make(chan error, 1)
	go func() {
		if _, err := fmt.Fprintf(os.Stdout, "Serving %s on %s\n", s.displayDir(), serverURL); err != nil {
			s.logger.Warn("failed to announce server address", slog.String("url", serverURL), slog.Any("err", err))
		}
		errCh <- s.httpServer.Serve(listener)
	}()

	if s.cfg.AutoOpen {
		go s.openBrowserWhenReady(ctx, serverURL)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.ErrorContext(ctx, "graceful shutdown failed", slog.Any("err", err))
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// URL returns the bound server URL once Start has picked a port.
func (s *Server) URL(ctx context.Context) (string, error) {
	select {
	case u := <-s.urlCh:
		return u, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Shutdown gracefully stops the server with the provided context timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) displayDir() string {
	if rel, err := filepath.Rel(s.cfg.SiteDir, s.cfg.OutputDir); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return s.cfg.OutputDir
}

func (s *Server) openBrowserWhenReady(ctx context.Context, url string) {
	timer := time.NewTimer(300 * time.Millisecond)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		if err := openBrowser(ctx, url); err != nil {
			s.logger.WarnContext(ctx, "auto-open failed", slog.String("url", url), slog.Any("err", err))
		}
	}
}

func openBrowser(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	}
	return cmd.Start()
}
