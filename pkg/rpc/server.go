// Package rpc is a small JSON-over-TCP request/response protocol used to
// serve snapshots to remote search hosts.
//
// Each message is one JSON document; a connection carries one request at a
// time. Errors travel as a code plus message so that sentinel errors remain
// matchable with errors.Is on the client.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// HandlerFunc processes a request and returns a JSON-encodable response.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Request is the wire format for a request.
type Request struct {
	Method string          `json:"method"`
	ID     int64           `json:"id"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the wire format for a response. Code is set only with Error.
type Response struct {
	ID    int64           `json:"id"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// Server dispatches requests to registered handlers.
type Server struct {
	handlers map[string]HandlerFunc
	mu       sync.RWMutex
	conns    map[net.Conn]struct{}
	connMu   sync.Mutex
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// NewServer creates a server with no methods.
func NewServer() *Server {
	return &Server{
		handlers: make(map[string]HandlerFunc),
		conns:    make(map[net.Conn]struct{}),
		logger:   slog.Default().With("component", "rpc-server"),
	}
}

// Register adds a handler. Method names follow "Service.Method".
func (s *Server) Register(method string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
	s.logger.Debug("method registered", "method", method)
}

// Methods returns the number of registered methods.
func (s *Server) Methods() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes every
// open connection and waits for their handlers to return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("rpc server listening", "addr", ln.Addr().String())
	stop := context.AfterFunc(ctx, func() {
		ln.Close()
		s.connMu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.connMu.Unlock()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				s.logger.Info("rpc server stopped")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return err
			}
			s.logger.Error("accept error", "error", err)
			continue
		}
		s.track(conn, true)
		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer s.track(conn, false)
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)
	for {
		var req Request
		if err := decoder.Decode(&req); err != nil {
			return
		}
		resp := s.dispatch(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			s.logger.Error("write error", "method", req.Method, "error", err)
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	resp := Response{ID: req.ID}
	s.mu.RLock()
	handler, ok := s.handlers[req.Method]
	s.mu.RUnlock()
	if !ok {
		resp.Error = "unknown method: " + req.Method
		resp.Code = codeUnknownMethod
		return resp
	}
	data, err := handler(ctx, req.Params)
	if err == nil {
		var encoded []byte
		encoded, err = json.Marshal(data)
		if err == nil {
			resp.Data = encoded
			return resp
		}
		err = fmt.Errorf("encoding response: %w", err)
	}
	s.logger.Debug("request failed", "method", req.Method, "error", err)
	resp.Error, resp.Code = err.Error(), codeOf(err)
	return resp
}
