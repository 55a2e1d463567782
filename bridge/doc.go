// Package bridge converts between column handles and the arrow-go object
// model.
//
// This package contains:
//   - handle <-> arrow array conversion (arrow.go)
//   - Arrow IPC encoding of single-column batches (ipc.go)
//
// The exchange package is the zero-copy path; bridge deliberately copies,
// so the resulting values never alias memory owned by a capsule.
package bridge
