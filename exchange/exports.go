package exchange

// #include "abi.h"
import "C"

// arrowCapsuleReleaseSchema is the release callback wired into every
// exported schema descriptor. The consuming boundary may invoke it
// unconditionally and from any goroutine; LoadAndDelete on the state
// registry makes disposal exactly-once, and a released descriptor is
// marked with a NULL release pointer per the C Data Interface.
//
//export arrowCapsuleReleaseSchema
func arrowCapsuleReleaseSchema(schema *CArrowSchema) {
	if schema == nil || schema.release == nil {
		return
	}
	st := stateHandle(uintptr(schema.private_data)).take()
	if st == nil {
		return
	}
	schema.release = nil
	schema.private_data = nil
	st.dispose()
	DefaultMetrics.SchemaReleases.Inc()
}

// arrowCapsuleReleaseArray is the release callback wired into every
// exported array descriptor. Disposing the state releases the moved
// column buffer and frees the C-heap buffer pointer array.
//
//export arrowCapsuleReleaseArray
func arrowCapsuleReleaseArray(arr *CArrowArray) {
	if arr == nil || arr.release == nil {
		return
	}
	st := stateHandle(uintptr(arr.private_data)).take()
	if st == nil {
		return
	}
	arr.release = nil
	arr.private_data = nil
	arr.buffers = nil
	st.dispose()
	DefaultMetrics.ArrayReleases.Inc()
}
