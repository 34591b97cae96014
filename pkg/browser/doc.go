// Package browser manages browser targets and sessions over the CDP
// transport: discovering or launching a debug endpoint, attaching to tabs,
// and the typed page operations (evaluate, click, type, wait) the publishing
// flow is built on.
//
// # Sessions
//
// A Session is an attached handle to one target, multiplexed over the shared
// connection via its session id. Sessions hold a non-owning reference to the
// connection; once the connection closes, every session operation fails with
// the transport's closed error rather than hanging.
//
// # Attach or launch
//
// AttachOrLaunch prefers an already-running browser found on a candidate
// debug port. When none responds it picks a free port and starts a fresh
// browser with a dedicated profile directory. A browser launched this way is
// deliberately left running when the process exits, so a human can inspect
// or finish what the automation started.
package browser
