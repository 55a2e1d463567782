package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-zeromq/zmq4"
	"go.uber.org/zap"

	"github.com/VanDung-dev/ArrowCapsule/bridge"
	"github.com/VanDung-dev/ArrowCapsule/column"
)

const fetchCommand = "fetch"

// Source supplies the batches a Server hands out. Each call must return a
// fresh handle; the server releases it after encoding.
type Source interface {
	NextBatch() (*column.Handle, error)
}

// SourceFunc adapts a plain function into a Source.
type SourceFunc func() (*column.Handle, error)

// NextBatch calls f.
func (f SourceFunc) NextBatch() (*column.Handle, error) { return f() }

// Server answers fetch requests with IPC-encoded column batches.
type Server struct {
	source Source
	codec  *bridge.Codec
	log    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	sock    zmq4.Socket
	running bool
	mu      sync.Mutex
	wg      sync.WaitGroup
}

// NewServer creates a Server pulling batches from source. A nil logger
// disables logging.
func NewServer(source Source, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		source: source,
		codec:  bridge.NewCodec(),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start binds the endpoint and begins serving in a background goroutine.
func (s *Server) Start(endpoint string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}

	s.sock = zmq4.NewRep(s.ctx)
	if err := s.sock.Listen(endpoint); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to bind %s: %w", endpoint, err)
	}
	s.running = true
	s.mu.Unlock()

	s.log.Info("serving column batches", zap.String("endpoint", s.Addr()))

	s.wg.Add(1)
	go s.serveLoop()
	return nil
}

// Addr returns the bound endpoint. Useful when listening on port 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sock == nil {
		return ""
	}
	if addr := s.sock.Addr(); addr != nil {
		return "tcp://" + addr.String()
	}
	return ""
}

// Stop shuts the server down and waits for the serve loop to exit.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	sock := s.sock
	s.mu.Unlock()

	s.cancel()
	if err := sock.Close(); err != nil {
		s.log.Warn("socket close failed", zap.Error(err))
	}
	s.wg.Wait()
}

func (s *Server) serveLoop() {
	defer s.wg.Done()

	for {
		msg, err := s.sock.Recv()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				s.log.Warn("recv failed", zap.Error(err))
				continue
			}
		}

		if err := s.sock.Send(s.reply(msg)); err != nil {
			s.log.Warn("send failed", zap.Error(err))
		}
	}
}

func (s *Server) reply(msg zmq4.Msg) zmq4.Msg {
	if len(msg.Frames) == 0 || string(msg.Frames[0]) != fetchCommand {
		return zmq4.NewMsgFrom([]byte("error"), []byte("unknown command"))
	}

	h, err := s.source.NextBatch()
	if err != nil {
		s.log.Warn("source failed", zap.Error(err))
		return zmq4.NewMsgFrom([]byte("error"), []byte(err.Error()))
	}
	defer h.Release()

	payload, err := s.codec.EncodeHandle(h)
	if err != nil {
		s.log.Warn("encode failed", zap.Error(err))
		return zmq4.NewMsgFrom([]byte("error"), []byte(err.Error()))
	}

	size, _ := h.Size()
	s.log.Debug("served batch", zap.Int("rows", size), zap.Int("bytes", len(payload)))
	return zmq4.NewMsgFrom([]byte("ok"), payload)
}
