// Package transport serves column batches over ZeroMQ.
//
// This package implements:
//   - Server: REQ/REP endpoint answering fetch requests with IPC-encoded
//     batches pulled from a Source
//   - Client: fetches a batch and decodes it into an owned handle
//
// Replies carry two frames: a status ("ok" or "error") and either the
// Arrow IPC payload or an error message.
package transport
