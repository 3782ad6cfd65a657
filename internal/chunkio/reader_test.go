package chunkio

import (
	"errors"
	"os"
	"testing"

	"github.com/xisort/xisort/internal/metric"
	"github.com/xisort/xisort/internal/prng"
	"github.com/xisort/xisort/internal/record"
	"github.com/xisort/xisort/internal/scratch"
	"github.com/xisort/xisort/internal/seq"
	"github.com/xisort/xisort/internal/tailio"
)

func writeOneChunk(t *testing.T, vals []float64) string {
	t.Helper()
	dir, err := scratch.NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(dir.Close)

	budget := scratch.NewBudget(1 << 30)
	w := NewWriter(WriterConfig{
		Dir:       dir,
		Budget:    budget,
		Capacity:  len(vals) + 1,
		Transform: metric.Strict{},
		TieMode:   record.TieValue,
		RNG:       prng.NewSeeded(1),
		Seq:       &seq.Counter{},
	}, tailio.NewWriter(dir, budget))

	paths, err := w.WriteAll(sliceSeq(vals))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected exactly one chunk, got %d", len(paths))
	}
	return paths[0]
}

func collectRecords(t *testing.T, path string, cfg ReadConfig) ([]record.Rec, error) {
	t.Helper()
	var out []record.Rec
	for r, err := range Records(path, cfg) {
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

func TestRecordsVerifiesIntactChunk(t *testing.T) {
	path := writeOneChunk(t, []float64{3, 1, 2})

	recs, err := collectRecords(t, path, ReadConfig{Integrity: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
}

func TestRecordsDetectsFlippedByteHardFailure(t *testing.T) {
	path := writeOneChunk(t, []float64{3, 1, 2})

	flipLastPayloadByte(t, path)

	_, err := collectRecords(t, path, ReadConfig{Integrity: true})
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}

func TestRecordsSoftVerifyDowngradesToWarning(t *testing.T) {
	path := writeOneChunk(t, []float64{3, 1, 2})
	flipLastPayloadByte(t, path)

	var warned bool
	recs, err := collectRecords(t, path, ReadConfig{
		Integrity:  true,
		SoftVerify: true,
		Warnf:      func(string, ...any) { warned = true },
	})
	if err != nil {
		t.Fatalf("soft-verify should not return an error, got %v", err)
	}
	if !warned {
		t.Fatal("expected a warning on integrity mismatch under soft-verify")
	}
	if len(recs) != 3 {
		t.Fatalf("expected records to still be yielded, got %d", len(recs))
	}
}

func TestRecordsStructuralCorruptionFailsHard(t *testing.T) {
	path := writeOneChunk(t, []float64{3, 1, 2})
	truncateByOneByte(t, path)

	_, err := collectRecords(t, path, ReadConfig{Integrity: true})
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestRecordsNoIntegritySkipsVerification(t *testing.T) {
	path := writeOneChunk(t, []float64{3, 1, 2})
	flipLastPayloadByte(t, path)

	recs, err := collectRecords(t, path, ReadConfig{Integrity: false})
	if err != nil {
		t.Fatalf("integrity disabled, should not fail: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
}

func flipLastPayloadByte(t *testing.T, path string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	off := info.Size() - tailio.TagSize - 1
	b := make([]byte, 1)
	if _, err := f.ReadAt(b, off); err != nil {
		t.Fatal(err)
	}
	b[0] ^= 0xFF
	if _, err := f.WriteAt(b, off); err != nil {
		t.Fatal(err)
	}
}

func truncateByOneByte(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(path, info.Size()-1); err != nil {
		t.Fatal(err)
	}
}
