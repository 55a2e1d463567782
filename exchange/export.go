package exchange

// #include <stdlib.h>
// #include "abi.h"
//
// extern void capsuleGoReleaseSchema(struct ArrowSchema* schema);
// extern void capsuleGoReleaseArray(struct ArrowArray* array);
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/VanDung-dev/ArrowCapsule/column"
)

// Exporter converts handles into capsule pairs and back. The zero value is
// not usable; construct with NewExporter.
type Exporter struct {
	metrics *Metrics
}

// NewExporter creates an Exporter reporting to the package metrics.
func NewExporter() *Exporter {
	return &Exporter{metrics: DefaultMetrics}
}

// Export materializes a capsule pair from h, moving ownership of the
// buffer into the data token's exported state. On success h is left in the
// exported state and fails every later accessor with
// column.ErrUseAfterExport; a second Export fails with
// column.ErrAlreadyExported.
func (e *Exporter) Export(h *column.Handle) (*CapsulePair, error) {
	if h.IsExported() {
		return nil, column.ErrAlreadyExported
	}

	code := h.TypeCode()
	format, ok := formatForType[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, code)
	}

	length, err := h.Size()
	if err != nil {
		return nil, err
	}
	nullCount, err := h.NullCount()
	if err != nil {
		return nil, err
	}

	buf, err := h.Detach()
	if err != nil {
		return nil, err
	}

	pair := &CapsulePair{
		Schema: &SchemaToken{c: exportSchema(format)},
		Array:  &ArrayToken{c: exportArray(buf, length, nullCount)},
	}
	e.metrics.Exports.Inc()
	return pair, nil
}

// ProviderFor wraps h so it can be handed to a consumer expecting the
// two-capsule export capability.
func (e *Exporter) ProviderFor(h *column.Handle) CapsuleProvider {
	return ProviderFunc(func() (*CapsulePair, error) {
		return e.Export(h)
	})
}

func exportSchema(format string) *CArrowSchema {
	sc := (*CArrowSchema)(C.malloc(C.sizeof_struct_ArrowSchema))
	cformat := unsafe.Pointer(C.CString(format))

	sc.format = (*C.char)(cformat)
	sc.name = nil
	sc.metadata = nil
	sc.flags = C.ARROW_FLAG_NULLABLE
	sc.n_children = 0
	sc.children = nil
	sc.dictionary = nil

	st := &exportedState{callocs: []unsafe.Pointer{cformat}}
	sc.private_data = unsafe.Pointer(storeState(st))
	sc.release = (*[0]byte)(C.capsuleGoReleaseSchema)
	return sc
}

func exportArray(buf *column.Buffer, length, nullCount int) *CArrowArray {
	arr := (*CArrowArray)(C.malloc(C.sizeof_struct_ArrowArray))
	arr.length = C.int64_t(length)
	arr.null_count = C.int64_t(nullCount)
	arr.offset = 0
	arr.n_buffers = 2
	arr.n_children = 0
	arr.children = nil
	arr.dictionary = nil

	// [validity, values], per the fixed-width primitive layout. The
	// pointers reference Go memory kept alive by the exported state; the
	// pointer array itself lives on the C heap.
	cbuffers := (*[2]unsafe.Pointer)(C.malloc(C.size_t(2 * unsafe.Sizeof(unsafe.Pointer(nil)))))
	cbuffers[0] = bytesPtr(buf.ValidityBytes())
	cbuffers[1] = bytesPtr(buf.ValuesBytes())
	arr.buffers = (*unsafe.Pointer)(unsafe.Pointer(cbuffers))

	st := &exportedState{buf: buf, callocs: []unsafe.Pointer{unsafe.Pointer(cbuffers)}}
	arr.private_data = unsafe.Pointer(storeState(st))
	arr.release = (*[0]byte)(C.capsuleGoReleaseArray)
	return arr
}

func bytesPtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}
