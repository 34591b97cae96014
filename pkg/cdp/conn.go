package cdp

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultCallTimeout is applied to calls that do not specify their own.
const DefaultCallTimeout = 15 * time.Second

// EventHandler receives the raw params payload of a protocol event.
type EventHandler func(params json.RawMessage)

// CallOpts carries the per-call options for Conn.Call.
type CallOpts struct {
	// SessionID routes the call to an attached target session. Empty means
	// the browser-level session.
	SessionID string

	// Timeout overrides DefaultCallTimeout. A pointer to zero disables the
	// timeout entirely; nil selects the default.
	Timeout *time.Duration
}

// Conn is one websocket connection to a CDP endpoint. It multiplexes
// concurrent calls by id and dispatches protocol events to handlers.
// All methods are safe for concurrent use.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex // one frame on the wire at a time

	mu      sync.Mutex
	nextID  int64
	pending map[int64]*pendingCall
	closed  bool

	handlerMu sync.RWMutex
	handlers  map[string][]EventHandler
}

// pendingCall lives from send until reply, timeout, or connection close.
type pendingCall struct {
	method string
	ch     chan callResult
	timer  *time.Timer
}

type callResult struct {
	result json.RawMessage
	err    error
}

type callEnvelope struct {
	ID        int64  `json:"id"`
	Method    string `json:"method"`
	Params    any    `json:"params,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type inboundFrame struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	SessionID string `json:"sessionId"`
}

// Dial connects to a CDP websocket endpoint. The timeout bounds the
// websocket handshake only; it has no effect on subsequent calls.
func Dial(url string, timeout time.Duration) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("cdp: dial %s: %w", url, err)
	}

	c := &Conn{
		ws:       ws,
		pending:  make(map[int64]*pendingCall),
		handlers: make(map[string][]EventHandler),
	}
	go c.readLoop()
	return c, nil
}

// Call sends one protocol call and blocks until its reply, its timeout, or
// connection close. The reply's result is returned raw for the caller to
// unmarshal; an error reply becomes a *CallError.
func (c *Conn) Call(method string, params any, opts CallOpts) (json.RawMessage, error) {
	timeout := DefaultCallTimeout
	if opts.Timeout != nil {
		timeout = *opts.Timeout
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnClosed
	}
	c.nextID++
	id := c.nextID
	pc := &pendingCall{method: method, ch: make(chan callResult, 1)}
	c.pending[id] = pc
	if timeout > 0 {
		pc.timer = time.AfterFunc(timeout, func() {
			c.complete(id, callResult{err: &TimeoutError{Method: method, Timeout: timeout}})
		})
	}
	c.mu.Unlock()

	data, err := json.Marshal(callEnvelope{
		ID:        id,
		Method:    method,
		Params:    params,
		SessionID: opts.SessionID,
	})
	if err != nil {
		c.abandon(id)
		return nil, fmt.Errorf("cdp: encode %s params: %w", method, err)
	}

	c.writeMu.Lock()
	err = c.ws.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.abandon(id)
		return nil, fmt.Errorf("cdp: send %s: %w", method, err)
	}

	res := <-pc.ch
	return res.result, res.err
}

// On registers a handler for a protocol event. Every registered handler is
// invoked for each matching frame, in registration order.
func (c *Conn) On(event string, handler EventHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

// Close shuts the connection down. Every call still pending fails promptly
// with ErrConnClosed; later calls fail the same way. Safe to call twice.
func (c *Conn) Close() error {
	if !c.teardown() {
		return nil
	}
	return c.ws.Close()
}

// teardown marks the connection closed and fails all pending calls.
// Returns false if the connection was already closed.
func (c *Conn) teardown() bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.closed = true
	orphans := c.pending
	c.pending = make(map[int64]*pendingCall)
	c.mu.Unlock()

	for _, pc := range orphans {
		if pc.timer != nil {
			pc.timer.Stop()
		}
		pc.ch <- callResult{err: ErrConnClosed}
	}
	return true
}

// complete delivers a result to the pending call for id, if one remains.
// Late replies to expired or abandoned calls are discarded here.
func (c *Conn) complete(id int64, res callResult) {
	c.mu.Lock()
	pc, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	if pc.timer != nil {
		pc.timer.Stop()
	}
	if ce, ok := res.err.(*CallError); ok && ce.Method == "" {
		ce.Method = pc.method
	}
	pc.ch <- res
}

// abandon removes a pending record whose call never made it onto the wire.
func (c *Conn) abandon(id int64) {
	c.mu.Lock()
	pc, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if ok && pc.timer != nil {
		pc.timer.Stop()
	}
}

func (c *Conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.teardown()
			_ = c.ws.Close()
			return
		}
		c.dispatch(data)
	}
}

// dispatch parses one inbound frame and routes it. Malformed frames are
// dropped; the loop must survive anything the browser sends.
func (c *Conn) dispatch(data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return
	}

	if frame.Method != "" {
		c.handlerMu.RLock()
		handlers := make([]EventHandler, len(c.handlers[frame.Method]))
		copy(handlers, c.handlers[frame.Method])
		c.handlerMu.RUnlock()

		for _, h := range handlers {
			h(frame.Params)
		}
		return
	}

	if frame.ID == 0 {
		return
	}
	res := callResult{result: frame.Result}
	if frame.Error != nil {
		res = callResult{err: &CallError{Code: frame.Error.Code, Message: frame.Error.Message}}
	}
	c.complete(frame.ID, res)
}
