// Package core provides the foundational domain types shared by scenemesh:
//
//   - Session (the per-user record: active scene name plus scene data)
//   - SessionStore (the get/set/delete capability every backend implements)
//   - Context (the per-invocation scope handed to scene handlers)
//   - Sentinel errors surfaced by the Stage
//
// The package keeps implementation concerns (persistence backends, the
// transition state machine) out of scope so that stores and transports can
// depend on it without pulling in the orchestrator.
package core
