// Package repository defines the data access interfaces for saved threat
// models.
//
// A saved model is a named entry of the model library. Each model stores its
// files by role (the projected model file and the scenario file) and the
// ordered log of editing commands that produced its current graph, so a
// session can be replayed after a restart.
//
// The sqlite subpackage provides the implementation. Its schema is migrated
// on startup and tested against in-memory databases.
package repository
