package node

import (
	"context"
	"errors"
	"io"
	"net"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fzft/go-mini-redis/config"
	"github.com/fzft/go-mini-redis/log"
	"github.com/fzft/go-mini-redis/resp"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	ErrServerClosed = errors.New("server closed")

	SharedMaxClientsErr = resp.Error{Message: "ERR max number of clients reached"}
)

type Server struct {
	cfg     *config.Config
	handler Handler

	mu       sync.Mutex
	ln       net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
	connCnt  atomic.Int64 // currently served connections
	accepted atomic.Uint64
}

func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg:   cfg,
		conns: make(map[net.Conn]struct{}),
	}
}

func (s *Server) SetHandler(handler Handler) {
	s.handler = handler
}

// Run listens on the configured address and serves until SIGINT, SIGTERM
// or SIGQUIT.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	err := s.ListenAndServe(ctx)
	log.Logger.Info("shutting down server")
	return err
}

// ListenAndServe binds the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lc := net.ListenConfig{KeepAlive: s.cfg.Server.KeepAlive.Duration}
	if s.cfg.Server.KeepAlive.Duration == 0 {
		lc.KeepAlive = -1
	}

	ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.Addr)
	if err != nil {
		log.Logger.Error("listen error", zap.String("addr", s.cfg.Server.Addr), zap.Error(err))
		return err
	}

	log.Logger.Info("listening on", zap.String("addr", ln.Addr().String()))
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln, one goroutine each, until ctx is done or
// Shutdown is called. It returns nil after a requested shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.handler == nil {
		s.handler = DefaultHandler{}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			if err := s.Shutdown(); err != nil {
				log.Logger.Warn("shutdown", zap.Error(err))
			}
		case <-done:
		}
	}()

	var delay time.Duration
	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				s.wg.Wait()
				return nil
			}
			if IsTemporaryError(err) {
				if delay == 0 {
					delay = 5 * time.Millisecond
				} else if delay *= 2; delay > time.Second {
					delay = time.Second
				}
				log.Logger.Warn("accept error, retrying", zap.Error(err), zap.Duration("delay", delay))
				time.Sleep(delay)
				continue
			}
			log.Logger.Error("accept error", zap.Error(err))
			err = multierr.Append(err, s.Shutdown())
			s.wg.Wait()
			return err
		}
		delay = 0

		if !s.track(nc) {
			nc.Close()
			continue
		}
		s.wg.Add(1)
		go s.serveConn(ctx, nc)
	}
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown closes the listener and every open transport. Blocked reads
// return and their connections are dropped. It is safe to call twice.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.ln != nil {
		err = multierr.Append(err, s.ln.Close())
	}
	for nc := range s.conns {
		err = multierr.Append(err, nc.Close())
	}
	return err
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) track(nc net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[nc] = struct{}{}
	s.connCnt.Add(1)
	return true
}

func (s *Server) untrack(nc net.Conn) {
	s.mu.Lock()
	delete(s.conns, nc)
	s.mu.Unlock()
	s.connCnt.Add(-1)
}

func (s *Server) connOptions() ConnOptions {
	return ConnOptions{
		ReadBufferSize: s.cfg.Protocol.ReadBufferSize,
		MaxBufferSize:  s.cfg.Protocol.MaxBufferSize,
		Limits:         s.cfg.Limits(),
	}
}

// serveConn runs the read, handle, write loop of one connection.
func (s *Server) serveConn(ctx context.Context, nc net.Conn) {
	defer s.wg.Done()
	defer s.untrack(nc)

	logger := log.Logger.With(
		zap.String("conn", uuid.NewString()),
		zap.String("remote", nc.RemoteAddr().String()),
	)
	s.accepted.Add(1)

	c := NewConn(nc, s.connOptions())
	defer func() {
		if err := c.Close(); err != nil && !s.isClosed() {
			logger.Debug("close", zap.Error(err))
		}
	}()

	if s.connCnt.Load() > int64(s.cfg.Server.MaxClients) {
		logger.Warn("max number of clients reached", zap.Int("max_clients", s.cfg.Server.MaxClients))
		c.WriteFrame(SharedMaxClientsErr)
		return
	}
	logger.Debug("accepted connection")

	for {
		f, err := c.ReadFrame()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			logger.Debug("client closed connection")
			return
		case errors.Is(err, ErrConnectionReset):
			logger.Warn("client closed connection mid-frame", zap.Int("buffered", c.Buffered()))
			return
		case errors.Is(err, resp.ErrMalformed), errors.Is(err, resp.ErrUnsupported):
			logger.Warn("protocol error", zap.Error(err))
			c.WriteFrame(resp.Error{Message: errorReply(err)})
			return
		default:
			if !s.isClosed() {
				logger.Warn("read error", zap.Error(err))
			}
			return
		}

		reply, err := s.handler.ServeFrame(ctx, f)
		if err != nil {
			reply = resp.Error{Message: errorReply(err)}
		}
		if reply == nil {
			continue
		}
		if err := c.WriteFrame(reply); err != nil {
			logger.Warn("write error", zap.Error(err))
			return
		}
	}
}

// Stats reports the live and total connection counts.
func (s *Server) Stats() (connected int64, total uint64) {
	return s.connCnt.Load(), s.accepted.Load()
}
