// Package store contains implementations of the durable system of record:
// core.TurnStore (append log + fallback reads), core.SessionBindingLookup,
// core.CharacterStore and core.SessionAdmin. GormStore persists to Postgres
// through GORM and mirrors the existing relational schema (character_info,
// chat_sessions, chat_history); InMemoryStore offers the same contracts for
// tests and embedded use.
//
// The store is authoritative. The history cache is a disposable projection
// of chat_history and may be absent at any time without data loss.
package store
