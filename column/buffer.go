package column

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Common errors for column operations.
var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUseAfterExport  = errors.New("handle used after export")
	ErrAlreadyExported = errors.New("handle already exported")
	ErrAlreadyReleased = errors.New("handle already released")
)

// TypeCode identifies the element representation of a column.
type TypeCode int8

const (
	// Int32 is a 32-bit signed integer column. It is currently the only
	// supported fixed-width type; adding a type means adding a code here
	// and a format entry in the exchange package.
	Int32 TypeCode = iota
)

// ByteWidth returns the storage width of one element.
func (t TypeCode) ByteWidth() int {
	switch t {
	case Int32:
		return arrow.Int32SizeBytes
	default:
		return 0
	}
}

func (t TypeCode) String() string {
	switch t {
	case Int32:
		return "int32"
	default:
		return fmt.Sprintf("TypeCode(%d)", int8(t))
	}
}

// Buffer owns a contiguous run of fixed-width values plus an optional
// validity bitmap (1 = valid, 0 = null). A nil validity bitmap means every
// element is valid.
type Buffer struct {
	refCount atomic.Int64

	length   int
	values   *memory.Buffer
	validity *memory.Buffer

	// release is invoked exactly once when the refcount drops to zero.
	// Used by the exchange package to trigger the original owner's
	// release callbacks for adopted foreign memory.
	release func()
}

// NewInt32 builds a Buffer from values and a per-element validity mask.
// valid may be nil, in which case every element is valid and the validity
// bitmap is omitted entirely. Values at invalid slots are stored as zero
// placeholders.
func NewInt32(mem memory.Allocator, vals []int32, valid []bool) (*Buffer, error) {
	if valid != nil && len(valid) != len(vals) {
		return nil, fmt.Errorf("validity mask length %d does not match value count %d", len(valid), len(vals))
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	b := &Buffer{length: len(vals)}
	b.refCount.Store(1)

	b.values = memory.NewResizableBuffer(mem)
	b.values.Resize(arrow.Int32SizeBytes * len(vals))
	copy(b.values.Bytes(), arrow.Int32Traits.CastToBytes(vals))

	if valid != nil {
		b.validity = memory.NewResizableBuffer(mem)
		b.validity.Resize(int(bitutil.BytesForBits(int64(len(vals)))))
		stored := arrow.Int32Traits.CastFromBytes(b.values.Bytes())
		for i, ok := range valid {
			bitutil.SetBitTo(b.validity.Bytes(), i, ok)
			if !ok {
				stored[i] = 0
			}
		}
	}

	return b, nil
}

// AdoptInt32 wraps foreign memory without copying it. The release hook is
// invoked exactly once when the buffer is disposed, so the original owner
// can free the underlying regions.
func AdoptInt32(length int, values, validity []byte, release func()) (*Buffer, error) {
	if length < 0 {
		return nil, fmt.Errorf("negative length %d", length)
	}
	width := Int32.ByteWidth()
	if len(values) < length*width {
		return nil, fmt.Errorf("values region has %d bytes, need %d for %d elements", len(values), length*width, length)
	}
	if validity != nil && int64(len(validity)) < bitutil.BytesForBits(int64(length)) {
		return nil, fmt.Errorf("validity bitmap has %d bytes, need %d for %d elements",
			len(validity), bitutil.BytesForBits(int64(length)), length)
	}

	b := &Buffer{
		length:  length,
		values:  memory.NewBufferBytes(values[:length*width]),
		release: release,
	}
	if validity != nil {
		b.validity = memory.NewBufferBytes(validity)
	}
	b.refCount.Store(1)
	return b, nil
}

// Len returns the number of logical elements.
func (b *Buffer) Len() int { return b.length }

// NullCount counts the zero bits in the validity bitmap. Without a bitmap
// every element is valid and the count is zero.
func (b *Buffer) NullCount() int {
	if b.validity == nil {
		return 0
	}
	return b.length - bitutil.CountSetBits(b.validity.Bytes(), 0, b.length)
}

// Get returns the value at index i and whether it is valid (non-null).
func (b *Buffer) Get(i int) (int32, bool, error) {
	if i < 0 || i >= b.length {
		return 0, false, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, i, b.length)
	}
	if b.validity != nil && !bitutil.BitIsSet(b.validity.Bytes(), i) {
		return 0, false, nil
	}
	return arrow.Int32Traits.CastFromBytes(b.values.Bytes())[i], true, nil
}

// ValuesBytes exposes the raw value storage.
func (b *Buffer) ValuesBytes() []byte { return b.values.Bytes() }

// ValidityBytes exposes the raw validity bitmap, or nil when every element
// is valid.
func (b *Buffer) ValidityBytes() []byte {
	if b.validity == nil {
		return nil
	}
	return b.validity.Bytes()
}

// Retain increases the reference count by 1.
// Retain may be called simultaneously from multiple goroutines.
func (b *Buffer) Retain() {
	b.refCount.Add(1)
}

// Release decreases the reference count by 1.
// When the reference count goes to zero, the storage is freed and the
// release hook (if any) is invoked. Release may be called simultaneously
// from multiple goroutines; the disposal itself runs exactly once.
func (b *Buffer) Release() {
	if b.refCount.Add(-1) != 0 {
		return
	}
	if b.values != nil {
		b.values.Release()
		b.values = nil
	}
	if b.validity != nil {
		b.validity.Release()
		b.validity = nil
	}
	if b.release != nil {
		b.release()
		b.release = nil
	}
}
