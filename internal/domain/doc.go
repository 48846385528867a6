// Package domain defines the graph model engine for the threat model editor.
//
// This package contains the entities of an editable threat model graph and the
// pure operations that keep it consistent while it is composed, duplicated,
// restructured and renamed.
//
// # Core Types
//
// Node represents a model component (location, item, data, actor, role, ...)
// with optional layout coordinates and an open attribute bag.
//
// Edge represents a binary relation between two nodes. Directedness follows
// the relation type: relations in the non-directed set (network, connects)
// are undirected, everything else is directed.
//
// Group records membership of nodes. It does not own its members.
//
// Fragment is a partial, possibly inconsistent graph used as the unit of
// transfer for import, clone and combine. Graph is the canonical store and
// must satisfy the referential invariants checked by Graph.Validate after
// every completed mutation.
//
// # Documents
//
// Policies and processes are semi-structured documents (Document) that embed
// node ids at several nesting depths. The id-bearing fields of each document
// kind are declared as IDPath lists, so id rewrites walk known paths instead
// of substituting strings blindly.
//
// # Identity
//
// Every operation that needs fresh ids takes them from an Editor's
// IDGenerator. The package-level functions use a UUID-backed editor; callers
// that need reproducible ids (tests, command replay) construct their own.
//
// # Design Principles
//
// - Copy-on-write: operations return new values and never mutate their inputs
// - No database or external I/O
// - Unmapped ids are left unchanged by every rewrite
package domain
