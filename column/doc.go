// Package column implements the minimal columnar data model that crosses
// the exchange boundary.
//
// This package implements:
//   - Buffer: fixed-width value storage with an optional validity bitmap
//   - Handle: a typed, exclusively-owned buffer with a cached null count
//
// Buffers follow the Arrow layout for fixed-width primitive arrays so they
// can be handed to the exchange package without copying.
package column
