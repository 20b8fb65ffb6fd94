package server

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/nightglow/respd/internal/config"
	"github.com/nightglow/respd/internal/resp"
	"go.uber.org/zap"
)

// Server owns the listener and drives one goroutine per connection. Each
// connection gets its own Peer, so decode state is never shared.
type Server struct {
	cfg      *config.Config
	engine   *Engine
	logger   *zap.Logger
	listener net.Listener
	wg       sync.WaitGroup
}

func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		engine: NewEngine(logger),
		logger: logger,
	}
}

// Start binds the listener and begins accepting connections
func (s *Server) Start() error {
	address := net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	s.listener = listener

	s.logger.Info("listening on", zap.String("address", listener.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Addr returns the bound address, useful when the configured port is 0
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Stop closes the listener and waits for in-flight connections to finish
func (s *Server) Stop() {
	if s.listener != nil {
		s.listener.Close() //nolint:errcheck
	}
	s.wg.Wait()
	s.logger.Info("server stopped")
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Accept error", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection handles a connection for a single user
func (s *Server) handleConnection(conn net.Conn) {
	log := s.logger
	if log.Core().Enabled(zap.DebugLevel) {
		log.Debug("client connected", zap.String("addr", conn.RemoteAddr().String()))
	}

	peer := NewPeer(conn, s.cfg.Server, s.cfg.Protocol)
	defer func() {
		peer.Close() //nolint:errcheck
		if log.Core().Enabled(zap.DebugLevel) {
			log.Debug("client disconnected", zap.String("addr", conn.RemoteAddr().String()))
		}
	}()

	for {
		cmdValue, err := peer.ReadCommand()
		if err != nil {
			s.finishRead(peer, err)
			return
		}

		if cmdValue.Type != resp.TypeArray || cmdValue.IsNull {
			log.Error("invalid request type", zap.String("addr", peer.RemoteAddr()))
			continue
		}

		if len(cmdValue.Array) == 0 {
			continue
		}

		commandName := strings.ToUpper(string(cmdValue.Array[0].String))

		args := cmdValue.Array[1:]

		result := s.engine.Execute(commandName, args)

		if err = peer.Send(result); err != nil {
			log.Error("error writing response:", zap.Error(err))
			return
		}

		if peer.InputBuffered() == 0 {
			if err := peer.Flush(); err != nil {
				return
			}
		}
	}
}

// finishRead classifies the read failure. Malformed input is fatal to the
// connection's framing: send a best-effort error reply and hang up. A
// transport error just ends the loop.
func (s *Server) finishRead(peer *Peer, err error) {
	var perr *resp.ProtocolError
	switch {
	case errors.As(err, &perr):
		s.logger.Warn("protocol error, closing connection",
			zap.String("addr", peer.RemoteAddr()),
			zap.Error(err),
		)
		reply := resp.MakeError("ERR Protocol error: " + perr.Unwrap().Error())
		if werr := peer.Send(reply); werr == nil {
			peer.Flush() //nolint:errcheck
		}
	case errors.Is(err, resp.ErrBufferLimit):
		s.logger.Warn("input buffer limit exceeded, closing connection",
			zap.String("addr", peer.RemoteAddr()),
		)
	case errors.Is(err, io.EOF):
		// clean disconnect
	default:
		s.logger.Warn("read command failed", zap.Error(err))
	}
}
