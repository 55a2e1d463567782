package exchange

import (
	"errors"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/VanDung-dev/ArrowCapsule/column"
)

func newInt32Handle(t *testing.T, vals []int32, valid []bool) *column.Handle {
	t.Helper()
	buf, err := column.NewInt32(memory.DefaultAllocator, vals, valid)
	if err != nil {
		t.Fatalf("NewInt32 failed: %v", err)
	}
	return column.NewHandle(column.Int32, buf)
}

func TestRoundTrip(t *testing.T) {
	exp := NewExporter()
	h := newInt32Handle(t, []int32{10, 20, 0, 40, 50}, []bool{true, true, false, true, true})

	pair, err := exp.Export(h)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !h.IsExported() {
		t.Error("Producer handle should be exported")
	}

	imported, err := exp.Import(pair)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	size, err := imported.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 5 {
		t.Errorf("Expected size 5, got %d", size)
	}

	n, err := imported.NullCount()
	if err != nil {
		t.Fatalf("NullCount failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 null, got %d", n)
	}

	v, valid, err := imported.Get(0)
	if err != nil {
		t.Fatalf("Get(0) failed: %v", err)
	}
	if !valid || v != 10 {
		t.Errorf("Expected (10, valid), got (%d, %v)", v, valid)
	}

	_, valid, err = imported.Get(2)
	if err != nil {
		t.Fatalf("Get(2) failed: %v", err)
	}
	if valid {
		t.Error("Expected index 2 to be null")
	}

	imported.Release()
	if !pair.schemaReleased() || !pair.arrayReleased() {
		t.Error("Dropping the imported handle should run the original release callbacks")
	}
}

func TestRoundTripPerIndex(t *testing.T) {
	vals := []int32{-7, 0, 3, 2147483647, -2147483648, 12}
	valid := []bool{true, false, true, true, false, true}

	exp := NewExporter()
	pair, err := exp.Export(newInt32Handle(t, vals, valid))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	imported, err := exp.Import(pair)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	defer imported.Release()

	for i := range vals {
		v, ok, err := imported.Get(i)
		if err != nil {
			t.Fatalf("Get(%d) failed: %v", i, err)
		}
		if ok != valid[i] {
			t.Errorf("Index %d: expected valid=%v, got %v", i, valid[i], ok)
		}
		if ok && v != vals[i] {
			t.Errorf("Index %d: expected %d, got %d", i, vals[i], v)
		}
	}
}

func TestRoundTripEmpty(t *testing.T) {
	exp := NewExporter()
	pair, err := exp.Export(newInt32Handle(t, nil, nil))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	imported, err := exp.Import(pair)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	defer imported.Release()

	size, err := imported.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 0 {
		t.Errorf("Expected size 0, got %d", size)
	}
	n, err := imported.NullCount()
	if err != nil {
		t.Fatalf("NullCount failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 nulls, got %d", n)
	}
}

func TestRoundTripAllValidOmitsBitmap(t *testing.T) {
	exp := NewExporter()
	pair, err := exp.Export(newInt32Handle(t, []int32{1, 2, 3}, nil))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	imported, err := exp.Import(pair)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	defer imported.Release()

	n, err := imported.NullCount()
	if err != nil {
		t.Fatalf("NullCount failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 nulls, got %d", n)
	}
	for i, want := range []int32{1, 2, 3} {
		v, ok, err := imported.Get(i)
		if err != nil {
			t.Fatalf("Get(%d) failed: %v", i, err)
		}
		if !ok || v != want {
			t.Errorf("Index %d: expected (%d, valid), got (%d, %v)", i, want, v, ok)
		}
	}
}

func TestExportTwice(t *testing.T) {
	exp := NewExporter()
	h := newInt32Handle(t, []int32{1, 2}, nil)

	pair, err := exp.Export(h)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	defer pair.Release()

	if _, err := exp.Export(h); !errors.Is(err, column.ErrAlreadyExported) {
		t.Errorf("Expected ErrAlreadyExported, got %v", err)
	}
}

func TestUseAfterExport(t *testing.T) {
	exp := NewExporter()
	h := newInt32Handle(t, []int32{1, 2}, nil)

	pair, err := exp.Export(h)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	defer pair.Release()

	if _, err := h.Size(); !errors.Is(err, column.ErrUseAfterExport) {
		t.Errorf("Size: expected ErrUseAfterExport, got %v", err)
	}
	if _, _, err := h.Get(0); !errors.Is(err, column.ErrUseAfterExport) {
		t.Errorf("Get: expected ErrUseAfterExport, got %v", err)
	}
}

func TestDoubleImport(t *testing.T) {
	exp := NewExporter()
	pair, err := exp.Export(newInt32Handle(t, []int32{1, 2, 3}, nil))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	imported, err := exp.Import(pair)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	defer imported.Release()

	if _, err := exp.Import(pair); !errors.Is(err, ErrAlreadyConsumed) {
		t.Errorf("Expected ErrAlreadyConsumed, got %v", err)
	}
}

func TestTokenReleaseIdempotent(t *testing.T) {
	exp := NewExporter()
	pair, err := exp.Export(newInt32Handle(t, []int32{1, 2, 3}, nil))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	pair.Schema.Release()
	pair.Schema.Release()
	pair.Array.Release()
	pair.Array.Release()

	if !pair.schemaReleased() {
		t.Error("Schema token should be released")
	}
	if !pair.arrayReleased() {
		t.Error("Array token should be released")
	}
}

func TestConcurrentTokenRelease(t *testing.T) {
	// The consuming boundary may invoke release from any goroutine with no
	// coordination; disposal must still run exactly once. Run with -race.
	for iter := 0; iter < 200; iter++ {
		exp := NewExporter()
		pair, err := exp.Export(newInt32Handle(t, []int32{10, 20, 0, 40, 50}, []bool{true, true, false, true, true}))
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				pair.Schema.Release()
				pair.Array.Release()
			}()
		}
		wg.Wait()

		if !pair.schemaReleased() {
			t.Fatal("Schema token should be released")
		}
		if !pair.arrayReleased() {
			t.Fatal("Array token should be released")
		}
	}
}

func TestReleaseOneTokenLeavesTheOther(t *testing.T) {
	exp := NewExporter()
	pair, err := exp.Export(newInt32Handle(t, []int32{1}, nil))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	pair.Schema.Release()
	if pair.arrayReleased() {
		t.Error("Releasing the schema token must not release the array token")
	}
	pair.Array.Release()
}

func TestReleaseAfterImportIsNoop(t *testing.T) {
	exp := NewExporter()
	pair, err := exp.Export(newInt32Handle(t, []int32{9, 8, 7}, nil))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	imported, err := exp.Import(pair)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	// The boundary's own disposal after consumption must not re-claim
	// memory now owned by the imported handle.
	pair.Schema.Release()
	pair.Array.Release()

	v, valid, err := imported.Get(0)
	if err != nil {
		t.Fatalf("Get failed after token release: %v", err)
	}
	if !valid || v != 9 {
		t.Errorf("Expected (9, valid), got (%d, %v)", v, valid)
	}

	imported.Release()
	if !pair.schemaReleased() || !pair.arrayReleased() {
		t.Error("Release callbacks should run once the imported handle is dropped")
	}
}

func TestImportAfterReleaseFails(t *testing.T) {
	exp := NewExporter()
	pair, err := exp.Export(newInt32Handle(t, []int32{1}, nil))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	pair.Release()
	if _, err := exp.Import(pair); !errors.Is(err, ErrAlreadyConsumed) {
		t.Errorf("Expected ErrAlreadyConsumed, got %v", err)
	}
}

func TestUnknownNullCountTriggersRecount(t *testing.T) {
	exp := NewExporter()
	pair, err := exp.Export(newInt32Handle(t, []int32{1, 0, 3, 0, 5}, []bool{true, false, true, false, true}))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	pair.setNullCount(-1)

	imported, err := exp.Import(pair)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	defer imported.Release()

	n, err := imported.NullCount()
	if err != nil {
		t.Fatalf("NullCount failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected recount of 2 nulls, got %d", n)
	}
}

func TestUnknownNullCountWithoutBitmap(t *testing.T) {
	exp := NewExporter()
	pair, err := exp.Export(newInt32Handle(t, []int32{1, 2}, nil))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	pair.setNullCount(-1)

	imported, err := exp.Import(pair)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	defer imported.Release()

	n, err := imported.NullCount()
	if err != nil {
		t.Fatalf("NullCount failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 nulls without a bitmap, got %d", n)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	exp := NewExporter()
	pair, err := exp.Export(newInt32Handle(t, []int32{1}, nil))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	defer pair.Release()

	pair.setFormat("u")

	if _, err := exp.Import(pair); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType, got %v", err)
	}
}

func TestNestedLayoutRejected(t *testing.T) {
	exp := NewExporter()
	pair, err := exp.Export(newInt32Handle(t, []int32{1}, nil))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	defer pair.Release()

	pair.setSchemaChildCount(1)

	if _, err := exp.Import(pair); !errors.Is(err, ErrUnsupportedLayout) {
		t.Errorf("Expected ErrUnsupportedLayout, got %v", err)
	}
}

func TestNonZeroOffsetRejected(t *testing.T) {
	exp := NewExporter()
	pair, err := exp.Export(newInt32Handle(t, []int32{1, 2, 3}, nil))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	defer pair.Release()

	pair.setOffset(1)

	if _, err := exp.Import(pair); !errors.Is(err, ErrUnsupportedOffset) {
		t.Errorf("Expected ErrUnsupportedOffset, got %v", err)
	}
}

func TestMalformedNullCount(t *testing.T) {
	exp := NewExporter()

	// Positive null count with no bitmap.
	pair, err := exp.Export(newInt32Handle(t, []int32{1, 2}, nil))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	pair.setNullCount(1)
	if _, err := exp.Import(pair); !errors.Is(err, ErrMalformedCapsule) {
		t.Errorf("Expected ErrMalformedCapsule, got %v", err)
	}
	pair.Release()

	// Null count above length.
	pair, err = exp.Export(newInt32Handle(t, []int32{1, 2}, []bool{true, false}))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	defer pair.Release()
	pair.setNullCount(3)
	if _, err := exp.Import(pair); !errors.Is(err, ErrMalformedCapsule) {
		t.Errorf("Expected ErrMalformedCapsule, got %v", err)
	}
}

func TestImportNilPair(t *testing.T) {
	exp := NewExporter()
	if _, err := exp.Import(nil); !errors.Is(err, ErrMalformedCapsule) {
		t.Errorf("Expected ErrMalformedCapsule, got %v", err)
	}
	if _, err := exp.Import(&CapsulePair{}); !errors.Is(err, ErrMalformedCapsule) {
		t.Errorf("Expected ErrMalformedCapsule, got %v", err)
	}
}

func TestRawPointerHandoff(t *testing.T) {
	exp := NewExporter()
	pair, err := exp.Export(newInt32Handle(t, []int32{10, 20, 0, 40, 50}, []bool{true, true, false, true, true}))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	// Hand the descriptors across as raw addresses, the way a foreign
	// consumer receives them. The rebuilt pair takes ownership; the
	// original tokens are dropped without being released.
	rebuilt := PairFromPtrs(pair.Schema.Ptr(), pair.Array.Ptr())
	pair = nil

	imported, err := exp.Import(rebuilt)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	size, err := imported.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 5 {
		t.Errorf("Expected size 5, got %d", size)
	}

	v, valid, err := imported.Get(0)
	if err != nil {
		t.Fatalf("Get(0) failed: %v", err)
	}
	if !valid || v != 10 {
		t.Errorf("Expected (10, valid), got (%d, %v)", v, valid)
	}
	_, valid, err = imported.Get(2)
	if err != nil {
		t.Fatalf("Get(2) failed: %v", err)
	}
	if valid {
		t.Error("Expected index 2 to be null")
	}

	imported.Release()
	if !rebuilt.schemaReleased() || !rebuilt.arrayReleased() {
		t.Error("Dropping the imported handle should run the original release callbacks")
	}
}

func TestExportReleasedHandle(t *testing.T) {
	exp := NewExporter()
	h := newInt32Handle(t, []int32{1, 2}, nil)
	h.Release()

	if _, err := exp.Export(h); !errors.Is(err, column.ErrAlreadyReleased) {
		t.Errorf("Expected ErrAlreadyReleased, got %v", err)
	}
}

func TestFromProviderRoundTrip(t *testing.T) {
	exp := NewExporter()
	h := newInt32Handle(t, []int32{10, 20, 0, 40, 50}, []bool{true, true, false, true, true})

	imported, err := exp.FromProvider(exp.ProviderFor(h))
	if err != nil {
		t.Fatalf("FromProvider failed: %v", err)
	}
	defer imported.Release()

	size, err := imported.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 5 {
		t.Errorf("Expected size 5, got %d", size)
	}
}

func TestFromProviderProtocolViolation(t *testing.T) {
	exp := NewExporter()

	for _, v := range []any{42, "array", struct{}{}, nil} {
		_, err := exp.FromProvider(v)
		if !errors.Is(err, ErrProtocolViolation) {
			t.Errorf("FromProvider(%T): expected ErrProtocolViolation, got %v", v, err)
		}
	}
}
