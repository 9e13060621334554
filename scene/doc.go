// Package scene implements Scene, a named unit of conversational logic with
// ordered enter, leave and message handlers.
//
// A Scene performs no I/O of its own: it only invokes the handlers registered
// on it, one after another, and reports the first failure as a
// *CallbackError. Transitions between scenes and persistence of the per-user
// session are the Stage's job (see package stage).
package scene
