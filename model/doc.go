// Package model defines the upstream language-model abstraction consumed by
// the turn orchestrator: a one-shot Complete call and a channel-based
// CompleteStream call, both taking the assembled message list. Provider
// adapters live in sub-packages (openai, anthropic) and are selected at
// wiring time; MockClient serves tests and demos.
package model
