package exchange

import (
	"sync/atomic"
	"unsafe"
)

// SchemaToken is the opaque schema capsule: the type/nullability/child
// descriptor plus its own release callback. It carries no data buffers.
type SchemaToken struct {
	c        *CArrowSchema
	consumed atomic.Bool
	released atomic.Bool
}

// Ptr returns the raw descriptor address for handoff across an FFI
// boundary. The token keeps ownership.
func (t *SchemaToken) Ptr() uintptr { return uintptr(unsafe.Pointer(t.c)) }

// Release disposes of the capsule. It is idempotent and safe to invoke
// from any goroutine: hosting boundaries call release unconditionally
// during their own garbage collection. Once the token has been consumed by
// an import, Release is a no-op because ownership lives in the imported
// handle.
func (t *SchemaToken) Release() {
	if t.consumed.Load() {
		return
	}
	t.destroy()
}

// destroy invokes the embedded release callback and frees the descriptor
// storage, exactly once.
func (t *SchemaToken) destroy() {
	if !t.released.CompareAndSwap(false, true) {
		return
	}
	invokeSchemaRelease(t.c)
	freeCPointer(unsafe.Pointer(t.c))
	t.c = nil
}

// ArrayToken is the opaque data capsule: buffer pointers, length, null
// count and the release callback guarding the real owning state.
type ArrayToken struct {
	c        *CArrowArray
	consumed atomic.Bool
	released atomic.Bool
}

// Ptr returns the raw descriptor address for handoff across an FFI
// boundary. The token keeps ownership.
func (t *ArrayToken) Ptr() uintptr { return uintptr(unsafe.Pointer(t.c)) }

// Release disposes of the capsule; see SchemaToken.Release for the
// idempotence and consumption rules.
func (t *ArrayToken) Release() {
	if t.consumed.Load() {
		return
	}
	t.destroy()
}

func (t *ArrayToken) destroy() {
	if !t.released.CompareAndSwap(false, true) {
		return
	}
	invokeArrayRelease(t.c)
	freeCPointer(unsafe.Pointer(t.c))
	t.c = nil
}

// CapsulePair is the two-capsule exchange unit. The tokens are
// independently lifetimed: releasing one never releases the other.
type CapsulePair struct {
	Schema *SchemaToken
	Array  *ArrayToken
}

// Release disposes of both capsules. Convenience for producers whose
// consumer never picked the pair up.
func (p *CapsulePair) Release() {
	if p.Array != nil {
		p.Array.Release()
	}
	if p.Schema != nil {
		p.Schema.Release()
	}
}

// PairFromPtrs wraps descriptors received from a foreign producer. The
// pair takes ownership of both structures, which must be heap allocations
// the C allocator can free.
func PairFromPtrs(schema, array uintptr) *CapsulePair {
	return &CapsulePair{
		Schema: &SchemaToken{c: (*CArrowSchema)(unsafe.Pointer(schema))},
		Array:  &ArrayToken{c: (*CArrowArray)(unsafe.Pointer(array))},
	}
}
