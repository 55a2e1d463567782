package exchange

// Helpers for exercising boundary conditions from the package tests, which
// cannot use cgo types directly.

// #include <stdlib.h>
// #include "abi.h"
import "C"

import "unsafe"

func (p *CapsulePair) setNullCount(n int64) {
	p.Array.c.null_count = C.int64_t(n)
}

func (p *CapsulePair) setOffset(n int64) {
	p.Array.c.offset = C.int64_t(n)
}

func (p *CapsulePair) setSchemaChildCount(n int64) {
	p.Schema.c.n_children = C.int64_t(n)
}

// setFormat swaps the schema token's format string. The replacement is
// registered with the exported state so the release callback frees it.
func (p *CapsulePair) setFormat(format string) {
	cs := unsafe.Pointer(C.CString(format))
	if st := stateHandle(uintptr(p.Schema.c.private_data)).peek(); st != nil {
		st.callocs = append(st.callocs, cs)
	}
	p.Schema.c.format = (*C.char)(cs)
}

func (p *CapsulePair) schemaReleased() bool {
	return p.Schema.c == nil || p.Schema.c.release == nil
}

func (p *CapsulePair) arrayReleased() bool {
	return p.Array.c == nil || p.Array.c.release == nil
}
