package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"worldbuilder/internal/logging"
)

// ErrAlreadyRunning reports that another relay holds the lock.
var ErrAlreadyRunning = errors.New("relay already running")

// Server runs the relay handler on a TCP listener while holding a lock file
// so only one relay serves a state directory.
type Server struct {
	bind   string
	logger *slog.Logger
	lock   *flock.Flock

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// NewServer prepares a server. lockPath may be empty to skip locking.
func NewServer(bind, lockPath string, handler http.Handler, logger *slog.Logger) (*Server, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("relay bind address required")
	}
	s := &Server{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "relay-server"),
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
	if strings.TrimSpace(lockPath) != "" {
		s.lock = flock.New(lockPath)
	}
	return s, nil
}

// Start acquires the lock, listens, and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("relay server already started")
	}
	if s.lock != nil {
		ok, err := s.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return ErrAlreadyRunning
		}
	}

	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		s.unlock()
		return fmt.Errorf("relay listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("relay server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("relay listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down and releases the lock. It is safe to call
// more than once.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	_ = s.listener.Close()
	s.listener = nil
	s.unlock()
	s.logger.Info("relay stopped")
}

func (s *Server) unlock() {
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
}
