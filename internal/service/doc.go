// Package service implements the editing session of the threat model editor.
//
// It sits between the HTTP handlers and the domain and repository layers.
//
// # Commands
//
// Every graph mutation is a Command. Commands are pure: Apply derives a new
// graph from the current one and draws fresh ids from the editor it is given.
// Commands have a JSON wire form (Envelope) so they can be sent by clients and
// stored in the command log.
//
// # Sessions
//
// A Session holds the current graph and the ordered log of commands applied
// since the session started. A command whose result breaks the graph
// invariants is rejected and the graph is left unchanged. The ids a command
// draws are recorded with it, so replaying the log reproduces the same graph.
//
// # GraphService
//
// GraphService wraps a session with import and export through the codec
// package, the model library in the repository and the EventBus. Clients
// connected over Server-Sent Events receive graph_changed and model events.
package service
