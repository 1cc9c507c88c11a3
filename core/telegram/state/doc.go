// Package state keeps per-user conversation sessions for Telegram bots and
// routes incoming updates to the handler registered for the user's phase.
// Stores are injected, so the in-memory map can be swapped for Redis without
// touching handlers.
package state
