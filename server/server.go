/*
Copyright © 2026 Lumen Language Contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"lumenlang.dev/runtime/internal/logging"
)

// wsTransport carries one session over a websocket connection: text frames
// for the command channel, binary frames for the payload channel.
type wsTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (t *wsTransport) WriteText(v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteJSON(v)
}

func (t *wsTransport) WriteBinary(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// Server exposes the runtime over HTTP: the websocket endpoint at /, a
// liveness probe at /healthz, and prometheus exposition at /metrics.
type Server struct {
	runtime    *Runtime
	dispatcher *Dispatcher
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// NewServer builds a server for a runtime listening on addr.
func NewServer(r *Runtime, addr string) *Server {
	s := &Server{
		runtime:    r,
		dispatcher: NewDispatcher(r),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The runtime trusts its front-end; origin policy is the
			// embedder's concern.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.httpServer = &http.Server{Addr: addr, Handler: s.Handler()}
	return s
}

// Handler returns the HTTP routing for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSocket)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return mux
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warning("server: websocket upgrade failed: %v", err)
		return
	}
	session := s.runtime.attachSession(&wsTransport{conn: conn})
	logging.Info("server: session %s connected", session.ID())
	defer func() {
		s.runtime.detachSession(session)
		_ = conn.Close()
		logging.Info("server: session %s disconnected", session.ID())
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			// The binary channel is outbound only.
			continue
		}
		session.respond(s.dispatcher.Handle(session, data))
	}
}

// ListenAndServe blocks serving the runtime until Close.
func (s *Server) ListenAndServe() error {
	logging.Info("server: listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close stops accepting connections and shuts the HTTP server down.
func (s *Server) Close(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
