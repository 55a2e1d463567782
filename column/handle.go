package column

// Handle couples a type code to an exclusively-owned Buffer. It is the unit
// that crosses the exchange boundary: exporting a Handle moves the buffer
// out, after which every data accessor fails with ErrUseAfterExport.
//
// Handles are not safe for concurrent use; callers with concurrent
// producers must serialize externally.
type Handle struct {
	code      TypeCode
	buf       *Buffer
	nullCount int
	exported  bool
}

// NewHandle wraps ownership of buf and computes the null count once from
// the validity bitmap.
func NewHandle(code TypeCode, buf *Buffer) *Handle {
	return &Handle{code: code, buf: buf, nullCount: buf.NullCount()}
}

// NewHandleWithNullCount wraps ownership of buf with a null count reported
// by a boundary that is trusted to have counted correctly. The import path
// uses this to avoid a recount on every hop.
func NewHandleWithNullCount(code TypeCode, buf *Buffer, nullCount int) *Handle {
	return &Handle{code: code, buf: buf, nullCount: nullCount}
}

// TypeCode returns the element type of the column.
func (h *Handle) TypeCode() TypeCode { return h.code }

// IsExported reports whether ownership has left this handle.
func (h *Handle) IsExported() bool { return h.exported }

// stateErr names the reason the buffer is gone: moved out by an export, or
// freed by an explicit Release.
func (h *Handle) stateErr() error {
	if h.exported {
		return ErrUseAfterExport
	}
	return ErrAlreadyReleased
}

// Size returns the number of logical elements.
func (h *Handle) Size() (int, error) {
	if h.buf == nil {
		return 0, h.stateErr()
	}
	return h.buf.Len(), nil
}

// NullCount returns the cached count of null elements.
func (h *Handle) NullCount() (int, error) {
	if h.buf == nil {
		return 0, h.stateErr()
	}
	return h.nullCount, nil
}

// Get returns the value at index i and whether it is valid (non-null).
func (h *Handle) Get(i int) (int32, bool, error) {
	if h.buf == nil {
		return 0, false, h.stateErr()
	}
	return h.buf.Get(i)
}

// Detach moves the buffer out of the handle, leaving it in the exported
// state. It is the single ownership-transfer point: a second Detach fails
// with ErrAlreadyExported, and a Detach of a released handle fails with
// ErrAlreadyReleased.
func (h *Handle) Detach() (*Buffer, error) {
	if h.buf == nil {
		if h.exported {
			return nil, ErrAlreadyExported
		}
		return nil, ErrAlreadyReleased
	}
	buf := h.buf
	h.buf = nil
	h.exported = true
	return buf, nil
}

// Release frees the buffer of a handle that was never exported. It is a
// no-op on an exported handle, since ownership has already moved.
func (h *Handle) Release() {
	if h.buf != nil {
		h.buf.Release()
		h.buf = nil
	}
}
