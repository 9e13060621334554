// Package session houses concrete implementations of the core.SessionStore.
// The interface itself (and the Session record) live in the core package to
// centralize domain contracts. The stage only falls back to InMemoryStore
// when no store is configured.
//
// Durable backends (Redis, SQLite, MongoDB) live in sub-packages; only the
// wiring layer decides which implementation to instantiate.
package session
