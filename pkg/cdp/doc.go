// Package cdp implements the low-level transport for the Chrome DevTools
// Protocol: a single websocket connection multiplexing any number of
// outstanding request/response calls, correlated by id, plus fan-out of
// unsolicited protocol events to registered handlers.
//
// # Architecture
//
// One Conn owns one websocket. Calls are numbered from a monotonically
// increasing counter; an id is issued once and never reused for the lifetime
// of the connection. Each call parks a pending record until its reply frame
// arrives, its timeout fires, or the connection closes - whichever happens
// first. Replies may arrive in any order; correlation depends only on the id,
// never on send order.
//
// # Timeouts
//
// Every call carries a timeout (default 15s). A timed-out call fails with a
// *TimeoutError and its pending record is dropped; the browser-side operation
// is not cancelled and its eventual reply, if any, is discarded. Passing an
// explicit zero timeout disables the timer entirely.
//
// # Events
//
// Handlers registered with On receive the raw params payload of every frame
// carrying that event name. Handlers run on the read-loop goroutine and must
// not block; anything slow should hand off to its own goroutine.
package cdp
