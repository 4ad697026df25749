package relay

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultRetryCount bounds delivery attempts per notification.
	DefaultRetryCount = 3
	// DefaultRetryDelay is the fixed pause between delivery attempts.
	DefaultRetryDelay = 5 * time.Second
	// DefaultMaxConns bounds concurrently handled connections.
	DefaultMaxConns = 100
)

// Options configure a relay Server. Zero values fall back to the defaults.
type Options struct {
	Addr       string
	RetryCount int
	RetryDelay time.Duration
	MaxConns   int
}

// Server is the connection-oriented push relay. It accepts connections,
// runs the registration/push protocol per connection and delivers accepted
// notifications to registered receivers with bounded retry.
type Server struct {
	addr       string
	retryCount int
	retryDelay time.Duration
	log        *zap.Logger

	registry *Registry
	sem      chan struct{}

	mu       sync.Mutex
	listener net.Listener
}

func NewServer(opts Options, log *zap.Logger) *Server {
	if opts.RetryCount <= 0 {
		opts.RetryCount = DefaultRetryCount
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = DefaultMaxConns
	}
	return &Server{
		addr:       opts.Addr,
		retryCount: opts.RetryCount,
		retryDelay: opts.RetryDelay,
		log:        log,
		registry:   NewRegistry(),
		sem:        make(chan struct{}, opts.MaxConns),
	}
}

// Registry exposes the receiver registry, mainly for tests and diagnostics.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Addr returns the bound listen address, valid after Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the listener and launches the accept loop. Starting an already
// started server is a logged no-op.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		s.log.Info("relay already running")
		return nil
	}
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("relay listen on %s: %w", s.addr, err)
	}
	s.listener = l
	s.log.Info("relay listening", zap.String("addr", l.Addr().String()))
	go s.acceptLoop(l)
	return nil
}

// Stop closes the listener, forcibly disconnects all receivers and clears
// the registry. Stopping a stopped server is a logged no-op.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		s.log.Info("relay not running")
		return
	}
	if err := s.listener.Close(); err != nil {
		s.log.Warn("closing relay listener failed", zap.Error(err))
	}
	s.listener = nil
	s.registry.Clear()
	s.log.Info("relay stopped")
}

// acceptLoop accepts connections until the listener closes. Each connection
// is handled by its own goroutine so a slow peer never blocks the acceptor;
// the semaphore bounds how many are handled at once.
func (s *Server) acceptLoop(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accepting relay connection failed", zap.Error(err))
			continue
		}
		select {
		case s.sem <- struct{}{}:
		default:
			s.log.Warn("relay connection limit reached, rejecting",
				zap.String("remote", conn.RemoteAddr().String()))
			_ = conn.Close()
			continue
		}
		go func() {
			defer func() { <-s.sem }()
			s.handleConn(conn)
		}()
	}
}

// isPermanentSendErr classifies a write failure as a broken receiver socket.
// Such failures mark the receiver disconnected immediately, with no retry;
// any other I/O failure is treated as transient and retried.
func isPermanentSendErr(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
