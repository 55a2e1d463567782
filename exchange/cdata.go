package exchange

// #include <stdlib.h>
// #include "abi.h"
//
// extern void arrowCapsuleReleaseSchema(struct ArrowSchema* schema);
// extern void arrowCapsuleReleaseArray(struct ArrowArray* array);
//
// void capsuleGoReleaseSchema(struct ArrowSchema* schema) { arrowCapsuleReleaseSchema(schema); }
// void capsuleGoReleaseArray(struct ArrowArray* array) { arrowCapsuleReleaseArray(array); }
//
// void capsuleInvokeSchemaRelease(struct ArrowSchema* schema) {
//   if (schema->release) { schema->release(schema); }
// }
// void capsuleInvokeArrayRelease(struct ArrowArray* array) {
//   if (array->release) { array->release(array); }
// }
import "C"

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/VanDung-dev/ArrowCapsule/column"
)

type (
	// CArrowSchema is the C Data Interface type descriptor defined in abi.h.
	CArrowSchema = C.struct_ArrowSchema
	// CArrowArray is the C Data Interface data descriptor defined in abi.h.
	CArrowArray = C.struct_ArrowArray
)

// unknownNullCount is the C Data Interface sentinel for "producer did not
// count nulls"; importers must recount from the validity bitmap.
const unknownNullCount = -1

// Format strings for the fixed-width primitives this implementation
// understands, per the C Data Interface format grammar.
var (
	formatForType = map[column.TypeCode]string{
		column.Int32: "i",
	}
	typeForFormat = map[string]column.TypeCode{
		"i": column.Int32,
	}
)

// exportedState holds everything a release callback must dispose of: the
// moved column buffer (data token only) and the C allocations backing the
// descriptor fields.
type exportedState struct {
	buf     *column.Buffer
	callocs []unsafe.Pointer
}

func (st *exportedState) dispose() {
	for _, p := range st.callocs {
		C.free(p)
	}
	st.callocs = nil
	if st.buf != nil {
		st.buf.Release()
		st.buf = nil
	}
}

// Exported states are reachable from C only through opaque uintptr handles,
// per the cgo pointer-passing rules. LoadAndDelete is the exactly-once gate
// for release callbacks, which the consuming boundary may invoke from any
// goroutine at any time.
var (
	exportedStates sync.Map // stateHandle -> *exportedState
	exportedIdx    uintptr
)

type stateHandle uintptr

func storeState(st *exportedState) stateHandle {
	h := atomic.AddUintptr(&exportedIdx, 1)
	if h == 0 {
		panic("exchange: exported-state handle space exhausted")
	}
	exportedStates.Store(h, st)
	return stateHandle(h)
}

func (h stateHandle) take() *exportedState {
	st, ok := exportedStates.LoadAndDelete(uintptr(h))
	if !ok {
		return nil
	}
	return st.(*exportedState)
}

func (h stateHandle) peek() *exportedState {
	st, ok := exportedStates.Load(uintptr(h))
	if !ok {
		return nil
	}
	return st.(*exportedState)
}

// invokeSchemaRelease calls the release callback embedded in the schema
// descriptor. Safe to call on an already-released descriptor; the C Data
// Interface marks released structures with a NULL release pointer.
func invokeSchemaRelease(sc *CArrowSchema) {
	C.capsuleInvokeSchemaRelease(sc)
}

func invokeArrayRelease(arr *CArrowArray) {
	C.capsuleInvokeArrayRelease(arr)
}

func freeCPointer(p unsafe.Pointer) {
	C.free(p)
}
