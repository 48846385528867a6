// Package handler implements the HTTP JSON API of the threat model editor.
//
// GraphHandler exposes the editing session: reading the graph, dispatching
// commands, importing and exporting fragments and models, and the library
// of saved models. Errors are returned as JSON {error, details} with a status
// derived from the sentinel errors of the domain, codec, service and
// repository packages (see StatusFor).
//
// Middleware provides panic recovery, CORS and request logging.
//
// The /events endpoint is served by the hub package.
package handler
