// Package exchange implements the zero-copy columnar exchange protocol over
// the Arrow C Data Interface.
//
// This package implements:
//   - CapsulePair: the two-capsule handoff unit (schema token + data token)
//   - Exporter: export of a column.Handle into capsules and import of a
//     capsule pair back into an owned handle
//   - idempotent release callbacks safe against double-release
//
// Exporting moves ownership of the handle's buffer into a heap-resident
// exported state reachable only through the data token's release callback.
// Importing adopts the referenced memory without copying and arranges for
// the original release callbacks to run exactly once when the new handle's
// buffer is disposed.
package exchange
