package bridge

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/VanDung-dev/ArrowCapsule/column"
)

// ToArrowArray copies h into an arrow-go Int32 array. The handle keeps
// ownership of its buffer.
func ToArrowArray(mem memory.Allocator, h *column.Handle) (*array.Int32, error) {
	if h.TypeCode() != column.Int32 {
		return nil, fmt.Errorf("unsupported type %s", h.TypeCode())
	}
	size, err := h.Size()
	if err != nil {
		return nil, err
	}

	bldr := array.NewInt32Builder(mem)
	defer bldr.Release()
	bldr.Reserve(size)

	for i := 0; i < size; i++ {
		v, valid, err := h.Get(i)
		if err != nil {
			return nil, err
		}
		if valid {
			bldr.Append(v)
		} else {
			bldr.AppendNull()
		}
	}

	return bldr.NewInt32Array(), nil
}

// FromArrowArray copies arr into a freshly owned handle.
func FromArrowArray(mem memory.Allocator, arr arrow.Array) (*column.Handle, error) {
	ints, ok := arr.(*array.Int32)
	if !ok {
		return nil, fmt.Errorf("unsupported arrow type %s, expected int32", arr.DataType())
	}

	var valid []bool
	if ints.NullN() > 0 {
		valid = make([]bool, ints.Len())
		for i := range valid {
			valid[i] = ints.IsValid(i)
		}
	}

	buf, err := column.NewInt32(mem, ints.Int32Values(), valid)
	if err != nil {
		return nil, err
	}
	return column.NewHandle(column.Int32, buf), nil
}
