// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package livereload implements a LiveReload server.
//
// Browsers load the client script from /livereload.js, connect to the
// /livereload WebSocket endpoint and perform the protocol 7 handshake. After
// that, every call to [Server.Reload] tells them to reload the page, or only
// the stylesheets when a CSS file changed.
package livereload

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"go.astrophena.name/base/logger"

	"github.com/gorilla/websocket"
)

// DefaultAddr is the address LiveReload clients connect to by default.
const DefaultAddr = "localhost:35729"

// Protocol is the only protocol version the server speaks.
const Protocol = "http://livereload.com/protocols/official-7"

//go:embed livereload.js
var clientScript []byte

// Message is a LiveReload protocol message.
type Message struct {
	Command    string   `json:"command"`
	Protocols  []string `json:"protocols,omitempty"`
	ServerName string   `json:"serverName,omitempty"`
	Path       string   `json:"path,omitempty"`
	LiveCSS    bool     `json:"liveCSS,omitempty"`
}

// Server tracks connected browsers.
type Server struct {
	mu    sync.Mutex
	conns map[*conn]struct{}

	upgrader websocket.Upgrader
}

type conn struct {
	mu sync.Mutex // serializes writes
	ws *websocket.Conn
}

func (c *conn) send(m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteJSON(m)
}

// New returns a new Server.
func New() *Server {
	return &Server{
		conns: make(map[*conn]struct{}),
		upgrader: websocket.Upgrader{
			// Pages are served from a different port.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

var serveReadyHook func() // used in tests, called when ListenAndServe started serving

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/livereload.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Write(clientScript)
	})
	mux.HandleFunc("/livereload", s.serveWebSocket)
	return mux
}

// ListenAndServe listens on addr and serves LiveReload clients until ctx is
// canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error(ctx, "live reload failed to listen", slog.String("addr", addr), slog.Any("err", err))
		return err
	}
	defer l.Close()
	logger.Info(ctx, "live reload listening", slog.String("addr", l.Addr().String()))

	httpSrv := &http.Server{Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(l); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}
	}()

	if serveReadyHook != nil {
		serveReadyHook()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	s.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// Reload tells every connected browser that the file at path changed.
func (s *Server) Reload(path string) {
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	m := Message{Command: "reload", Path: path, LiveCSS: true}
	for _, c := range conns {
		if err := c.send(m); err != nil {
			s.remove(c)
		}
	}
}

// Clients returns the number of connected browsers.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &conn{ws: ws}
	defer s.remove(c)

	for {
		var m Message
		if err := ws.ReadJSON(&m); err != nil {
			return
		}
		if m.Command != "hello" {
			continue
		}
		s.mu.Lock()
		s.conns[c] = struct{}{}
		s.mu.Unlock()
		if err := c.send(Message{
			Command:    "hello",
			Protocols:  []string{Protocol},
			ServerName: "frontpipe",
		}); err != nil {
			return
		}
		logger.Info(r.Context(), "browser connected", slog.String("remote", r.RemoteAddr))
	}
}

func (s *Server) remove(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	c.ws.Close()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	conns := s.conns
	s.conns = make(map[*conn]struct{})
	s.mu.Unlock()
	for c := range conns {
		c.ws.Close()
	}
}
