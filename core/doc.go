// Package core centralizes the domain contracts of chatmesh: the Turn and
// Session types, the HistoryCache / SessionLock / TurnStore interfaces and
// the shared error taxonomy. Implementations live in sibling packages
// (cache, lock, store, persona) so higher level packages (orchestrator,
// server) depend only on contracts and the wiring layer decides which
// backend to instantiate.
package core
