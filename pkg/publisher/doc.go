// Package publisher drives rendered content into a web article editor as a
// sequential state machine:
//
//	Init -> Connect -> EnsureLoggedIn -> OpenComposer -> FillMetadata ->
//	InjectBody -> InsertImages -> Save -> Done
//
// with Failed reachable from every state.
//
// Each run owns exactly one flow; the underlying transport stays fully
// concurrent underneath it. Failures split two ways: fatal conditions
// (connection loss, login never completing, a missing composer entry) abort
// the run, while degraded conditions (a metadata readback mismatch, one
// unlocatable image placeholder, an unconfirmed save) are logged and the run
// continues, because the final save exposes any real data loss.
//
// The browser window is left open at both Done and Failed so a human can
// inspect or repair the result.
package publisher
