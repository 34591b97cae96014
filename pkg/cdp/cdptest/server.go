// Package cdptest provides a scripted in-process CDP endpoint for tests:
// an httptest server exposing /json/version discovery plus a websocket that
// answers protocol calls through registered handlers and can emit events.
package cdptest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Call is one protocol call as received by the server.
type Call struct {
	ID        int64           `json:"id"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params"`
	SessionID string          `json:"sessionId"`
}

// Handler produces the result for one call. Returning an error turns into a
// protocol error reply; returning ErrNoReply suppresses the reply entirely.
type Handler func(call Call) (any, error)

// ErrNoReply tells the server to leave a call unanswered.
var ErrNoReply = errors.New("cdptest: no reply")

// Server is a fake CDP endpoint. Methods without a registered handler reply
// with an empty result, so tests only script what they assert on.
type Server struct {
	httpSrv *httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
	conns    []*serverConn
}

type serverConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

var upgrader = websocket.Upgrader{}

// New starts a fake endpoint. Callers must Close it.
func New() *Server {
	s := &Server{handlers: make(map[string]Handler)}

	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", s.handleVersion)
	mux.HandleFunc("/devtools/browser", s.handleWS)
	s.httpSrv = httptest.NewServer(mux)
	return s
}

// URL returns the websocket debugger URL, as /json/version would report it.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.httpSrv.URL, "http") + "/devtools/browser"
}

// Port returns the TCP port the fake endpoint listens on.
func (s *Server) Port() int {
	var port int
	fmt.Sscanf(s.httpSrv.Listener.Addr().String(), "127.0.0.1:%d", &port)
	return port
}

// Handle registers the handler for a protocol method, replacing any previous
// one. Each call runs on its own goroutine, so a handler may sleep to force
// replies out of send order.
func (s *Server) Handle(method string, fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = fn
}

// Calls returns a snapshot of every call received so far, in arrival order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns the received calls for one method.
func (s *Server) CallsTo(method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Emit sends an unsolicited protocol event to every connected client.
func (s *Server) Emit(method string, params any) error {
	payload, err := json.Marshal(map[string]any{"method": method, "params": params})
	if err != nil {
		return err
	}
	return s.broadcast(payload)
}

// EmitRaw sends arbitrary bytes to every connected client, for exercising
// malformed-frame handling.
func (s *Server) EmitRaw(data []byte) error {
	return s.broadcast(data)
}

// Close tears the endpoint down, dropping every live websocket.
func (s *Server) Close() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.ws.Close()
	}
	s.httpSrv.Close()
}

func (s *Server) broadcast(data []byte) error {
	s.mu.Lock()
	conns := make([]*serverConn, len(s.conns))
	copy(conns, s.conns)
	s.mu.Unlock()

	for _, c := range conns {
		c.writeMu.Lock()
		err := c.ws.WriteMessage(websocket.TextMessage, data)
		c.writeMu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"Browser":              "cdptest/1.0",
		"webSocketDebuggerUrl": s.URL(),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := &serverConn{ws: ws}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var call Call
		if err := json.Unmarshal(data, &call); err != nil {
			continue
		}

		s.mu.Lock()
		s.calls = append(s.calls, call)
		handler := s.handlers[call.Method]
		s.mu.Unlock()

		go s.reply(conn, call, handler)
	}
}

func (s *Server) reply(conn *serverConn, call Call, handler Handler) {
	var result any = struct{}{}
	var handlerErr error
	if handler != nil {
		result, handlerErr = handler(call)
		if errors.Is(handlerErr, ErrNoReply) {
			return
		}
	}

	frame := map[string]any{"id": call.ID}
	if call.SessionID != "" {
		frame["sessionId"] = call.SessionID
	}
	if handlerErr != nil {
		frame["error"] = map[string]any{"code": -32000, "message": handlerErr.Error()}
	} else if result != nil {
		frame["result"] = result
	} else {
		frame["result"] = struct{}{}
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	conn.writeMu.Lock()
	_ = conn.ws.WriteMessage(websocket.TextMessage, payload)
	conn.writeMu.Unlock()
}
