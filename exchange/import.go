package exchange

// #include "abi.h"
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow/bitutil"

	"github.com/VanDung-dev/ArrowCapsule/column"
)

// CapsuleProvider is the export capability a peer object must expose to be
// adapted into an owned handle.
type CapsuleProvider interface {
	ExportCapsules() (*CapsulePair, error)
}

// ProviderFunc adapts a plain function into a CapsuleProvider.
type ProviderFunc func() (*CapsulePair, error)

// ExportCapsules calls f.
func (f ProviderFunc) ExportCapsules() (*CapsulePair, error) { return f() }

// FromProvider adapts any object exposing the two-capsule export
// capability into an owned handle. When the capability is missing it fails
// with ErrProtocolViolation before any capsule is read.
func (e *Exporter) FromProvider(v any) (*column.Handle, error) {
	p, ok := v.(CapsuleProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %T has no ExportCapsules method", ErrProtocolViolation, v)
	}
	pair, err := p.ExportCapsules()
	if err != nil {
		return nil, err
	}
	return e.Import(pair)
}

// Import reconstructs an owned handle from a capsule pair, adopting the
// referenced memory without copying. Both tokens are marked consumed so a
// second Import (or the boundary's own disposal) cannot re-claim the
// memory; the original release callbacks still run exactly once, when the
// new handle's buffer is disposed.
func (e *Exporter) Import(pair *CapsulePair) (*column.Handle, error) {
	h, err := e.importPair(pair)
	if err != nil {
		e.metrics.ImportFailures.Inc()
		return nil, err
	}
	e.metrics.Imports.Inc()
	return h, nil
}

func (e *Exporter) importPair(pair *CapsulePair) (*column.Handle, error) {
	if pair == nil || pair.Schema == nil || pair.Array == nil {
		return nil, fmt.Errorf("%w: missing capsule token", ErrMalformedCapsule)
	}
	if pair.Schema.consumed.Load() || pair.Array.consumed.Load() {
		return nil, ErrAlreadyConsumed
	}
	if pair.Schema.released.Load() || pair.Array.released.Load() {
		return nil, fmt.Errorf("%w: token already released", ErrAlreadyConsumed)
	}

	sc, arr := pair.Schema.c, pair.Array.c
	if sc == nil || arr == nil || sc.release == nil || arr.release == nil {
		return nil, fmt.Errorf("%w: token carries no release callback", ErrMalformedCapsule)
	}

	// Schema token: type, layout, nullability.
	if sc.format == nil {
		return nil, fmt.Errorf("%w: schema token has no format", ErrMalformedCapsule)
	}
	format := C.GoString(sc.format)
	code, ok := typeForFormat[format]
	if !ok {
		return nil, fmt.Errorf("%w: format %q", ErrUnsupportedType, format)
	}
	if sc.n_children != 0 || arr.n_children != 0 {
		return nil, fmt.Errorf("%w: nested arrays not supported (%d schema children, %d array children)",
			ErrUnsupportedLayout, int64(sc.n_children), int64(arr.n_children))
	}
	if sc.dictionary != nil || arr.dictionary != nil {
		return nil, fmt.Errorf("%w: dictionary encoding not supported", ErrUnsupportedLayout)
	}

	// Data token: buffer geometry.
	if arr.offset != 0 {
		return nil, fmt.Errorf("%w: offset %d, must be 0", ErrUnsupportedOffset, int64(arr.offset))
	}
	length := int64(arr.length)
	if length < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrMalformedCapsule, length)
	}
	if arr.n_buffers != 2 {
		return nil, fmt.Errorf("%w: expected 2 buffers for %s, got %d", ErrMalformedCapsule, code, int64(arr.n_buffers))
	}

	cbuffers := unsafe.Slice((*unsafe.Pointer)(unsafe.Pointer(arr.buffers)), 2)
	validityPtr, valuesPtr := cbuffers[0], cbuffers[1]
	if valuesPtr == nil && length > 0 {
		return nil, fmt.Errorf("%w: missing values buffer", ErrMalformedCapsule)
	}

	var values, validity []byte
	if valuesPtr != nil {
		values = unsafe.Slice((*byte)(valuesPtr), length*int64(code.ByteWidth()))
	}
	if validityPtr != nil {
		validity = unsafe.Slice((*byte)(validityPtr), bitutil.BytesForBits(length))
	}

	nullCount := int64(arr.null_count)
	switch {
	case nullCount == unknownNullCount:
		// Producer did not count; recount from the bitmap instead of
		// trusting the sentinel.
		if validity == nil {
			nullCount = 0
		} else {
			nullCount = length - int64(bitutil.CountSetBits(validity, 0, int(length)))
		}
	case nullCount < 0 || nullCount > length:
		return nil, fmt.Errorf("%w: null count %d out of range for length %d", ErrMalformedCapsule, nullCount, length)
	case nullCount > 0 && validity == nil:
		return nil, fmt.Errorf("%w: null count %d but no validity bitmap", ErrMalformedCapsule, nullCount)
	}

	// Take ownership exactly once.
	if !pair.Schema.consumed.CompareAndSwap(false, true) {
		return nil, ErrAlreadyConsumed
	}
	if !pair.Array.consumed.CompareAndSwap(false, true) {
		pair.Schema.consumed.Store(false)
		return nil, ErrAlreadyConsumed
	}

	schemaTok, arrayTok := pair.Schema, pair.Array
	buf, err := column.AdoptInt32(int(length), values, validity, func() {
		// Exactly-once release of the underlying memory, whenever the
		// consuming side eventually drops the imported handle.
		arrayTok.destroy()
		schemaTok.destroy()
	})
	if err != nil {
		pair.Schema.consumed.Store(false)
		pair.Array.consumed.Store(false)
		return nil, fmt.Errorf("%w: %s", ErrMalformedCapsule, err)
	}

	return column.NewHandleWithNullCount(code, buf, int(nullCount)), nil
}
