package bridge

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/VanDung-dev/ArrowCapsule/column"
)

// BatchSchema returns the Arrow schema used to ship one column batch: a
// single nullable int32 field.
func BatchSchema() *arrow.Schema {
	return arrow.NewSchema(
		[]arrow.Field{
			{Name: "values", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		},
		nil,
	)
}

// Codec encodes column batches as Arrow IPC streams.
type Codec struct {
	allocator memory.Allocator
}

// NewCodec creates a Codec with the default memory allocator.
func NewCodec() *Codec {
	return &Codec{allocator: memory.DefaultAllocator}
}

// EncodeHandle serializes h to Arrow IPC bytes. The handle keeps ownership
// of its buffer.
func (c *Codec) EncodeHandle(h *column.Handle) ([]byte, error) {
	arr, err := ToArrowArray(c.allocator, h)
	if err != nil {
		return nil, err
	}
	defer arr.Release()

	record := array.NewRecord(BatchSchema(), []arrow.Array{arr}, int64(arr.Len()))
	defer record.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(record.Schema()), ipc.WithAllocator(c.allocator))
	if err := writer.Write(record); err != nil {
		return nil, fmt.Errorf("failed to write record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeHandle deserializes IPC bytes produced by EncodeHandle back into
// an owned handle.
func (c *Codec) DecodeHandle(data []byte) (*column.Handle, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(c.allocator))
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer reader.Release()

	if !reader.Next() {
		if reader.Err() != nil {
			return nil, reader.Err()
		}
		return nil, errors.New("no records in IPC data")
	}

	record := reader.Record()
	if record.NumCols() != 1 {
		return nil, fmt.Errorf("expected 1 column, got %d", record.NumCols())
	}

	return FromArrowArray(c.allocator, record.Column(0))
}
