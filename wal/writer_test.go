package wal

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestWriter(t *testing.T, dir string, policy SyncPolicy) *Writer {
	t.Helper()
	w, err := NewWriter(WriterConfig{
		Dir:             dir,
		SyncPolicy:      policy,
		FlushInterval:   10 * time.Millisecond,
		MaxSegmentBytes: 1 << 20,
		BufferBytes:     4096,
		MaxBatch:        10,
	})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	return w
}

func TestWriterAppendAndReplayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir, SyncSync)

	ctx := context.Background()
	records := []*Record{
		{Op: OpPut, Key: []byte("a"), Value: []byte("1")},
		{Op: OpPut, Key: []byte("b"), Value: []byte("2")},
		{Op: OpDelete, Key: []byte("a")},
	}
	for _, r := range records {
		if err := w.Append(ctx, r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var got []*Record
	stats, err := Replay(dir, func(r *Record) error {
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if stats.EntriesRecovered != 3 {
		t.Fatalf("EntriesRecovered = %d, want 3", stats.EntriesRecovered)
	}
	if len(got) != 3 || string(got[0].Key) != "a" || string(got[2].Key) != "a" || got[2].Op != OpDelete {
		t.Fatalf("replayed records = %+v", got)
	}
}

func TestWriterSegmentRotation(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(WriterConfig{
		Dir:             dir,
		SyncPolicy:      SyncSync,
		FlushInterval:   10 * time.Millisecond,
		MaxSegmentBytes: 64, // tiny, forces rotation almost immediately
		BufferBytes:     256,
	})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if err := w.Append(ctx, &Record{Op: OpPut, Key: []byte("k"), Value: []byte("0123456789")}); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	w.Close()

	segs, err := listSegments(dir)
	if err != nil {
		t.Fatalf("listSegments: %v", err)
	}
	if len(segs) < 2 {
		t.Fatalf("expected multiple segments from rotation, got %d", len(segs))
	}
}

func TestWriterCompactDeletesOldSegments(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(WriterConfig{
		Dir: dir, SyncPolicy: SyncSync, FlushInterval: 10 * time.Millisecond,
		MaxSegmentBytes: 32, BufferBytes: 128,
	})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		w.Append(ctx, &Record{Op: OpPut, Key: []byte("k"), Value: []byte("0123456789")})
	}
	if err := w.Compact(1); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	w.Close()

	segs, err := listSegments(dir)
	if err != nil {
		t.Fatalf("listSegments: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected exactly 1 segment retained after Compact(1), got %d", len(segs))
	}
}

func TestReplayTruncatedTailIsTolerated(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir, SyncSync)
	ctx := context.Background()
	w.Append(ctx, &Record{Op: OpPut, Key: []byte("a"), Value: []byte("1")})
	w.Close()

	segs, _ := listSegments(dir)
	path := segmentPath(dir, segs[0])
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// Truncate mid-entry: simulates the tail of a crash-interrupted write.
	truncated := data[:len(data)-3]
	if err := os.WriteFile(path, truncated, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	stats, err := Replay(dir, func(r *Record) error { return nil })
	if err != nil {
		t.Fatalf("Replay should tolerate a truncated tail, got error: %v", err)
	}
	if stats.EntriesRecovered != 0 {
		t.Fatalf("EntriesRecovered = %d, want 0 for a truncated single entry", stats.EntriesRecovered)
	}
}

func TestReplayCorruptEntrySkipsRestOfSegment(t *testing.T) {
	// P8: a single-bit flip in a WAL entry's body causes the replayer to
	// skip exactly that entry (or the remainder of that segment) without
	// corrupting the rest of recovery.
	dir := t.TempDir()
	w := newTestWriter(t, dir, SyncSync)
	ctx := context.Background()
	w.Append(ctx, &Record{Op: OpPut, Key: []byte("first"), Value: []byte("1")})
	w.Append(ctx, &Record{Op: OpPut, Key: []byte("second"), Value: []byte("2")})
	w.Append(ctx, &Record{Op: OpPut, Key: []byte("third"), Value: []byte("3")})
	w.Close()

	segs, _ := listSegments(dir)
	path := segmentPath(dir, segs[0])
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	// Locate the second entry's frame and zero its trailing checksum bytes.
	headerLen := binary.LittleEndian.Uint32(data[0:4])
	off := 4 + int(headerLen)
	firstLen := binary.LittleEndian.Uint32(data[off : off+4])
	off += 4 + int(firstLen)
	secondLenOff := off
	secondLen := binary.LittleEndian.Uint32(data[secondLenOff : secondLenOff+4])
	secondBodyOff := secondLenOff + 4
	crcOff := secondBodyOff + int(secondLen) - 4
	for i := 0; i < 4; i++ {
		data[crcOff+i] = 0
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var recovered []string
	stats, err := Replay(dir, func(r *Record) error {
		recovered = append(recovered, string(r.Key))
		return nil
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(recovered) != 1 || recovered[0] != "first" {
		t.Fatalf("recovered = %v, want only [first]", recovered)
	}
	if stats.CorruptedEntries < 1 {
		t.Fatalf("CorruptedEntries = %d, want >= 1", stats.CorruptedEntries)
	}
}

func TestWriterHeaderEntryCountSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir, SyncSync)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := w.Append(ctx, &Record{Op: OpPut, Key: []byte("k"), Value: []byte("v")}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	segs, err := listSegments(dir)
	if err != nil || len(segs) != 1 {
		t.Fatalf("listSegments = %v, %v", segs, err)
	}
	entryCount, createdAtMs, err := readSegmentHeader(segmentPath(dir, segs[0]))
	if err != nil {
		t.Fatalf("readSegmentHeader: %v", err)
	}
	if entryCount != 3 {
		t.Fatalf("header entry_count = %d, want 3", entryCount)
	}
	if createdAtMs == 0 {
		t.Fatal("header created_at_ms = 0, want a real timestamp")
	}

	stats, err := Replay(dir, func(r *Record) error { return nil })
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if stats.DeclaredEntries != stats.EntriesRecovered {
		t.Fatalf("DeclaredEntries = %d, EntriesRecovered = %d, want equal for a cleanly-closed segment",
			stats.DeclaredEntries, stats.EntriesRecovered)
	}

	// Resuming into the same directory must pick up where the header left off.
	w2 := newTestWriter(t, dir, SyncSync)
	if err := w2.Append(ctx, &Record{Op: OpPut, Key: []byte("k2"), Value: []byte("v2")}); err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}
	if err := w2.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	entryCount, _, err = readSegmentHeader(segmentPath(dir, segs[0]))
	if err != nil {
		t.Fatalf("readSegmentHeader after reopen: %v", err)
	}
	if entryCount != 4 {
		t.Fatalf("header entry_count after reopen+append = %d, want 4", entryCount)
	}
}

func TestWriteBatchIsolatesPerRecordErrorFromEarlierSuccesses(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(WriterConfig{
		Dir:             dir,
		SyncPolicy:      SyncAsync,
		FlushInterval:   time.Hour,
		MaxSegmentBytes: 64, // exactly fits the first record's frame, forcing rotation on the second
		BufferBytes:     4096,
		MaxBatch:        10,
	})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()

	// Pre-create the segment rotate() would open next, so its O_EXCL create
	// fails deterministically without relying on filesystem permissions.
	if f, err := os.Create(segmentPath(dir, 2)); err != nil {
		t.Fatalf("pre-create next segment: %v", err)
	} else {
		f.Close()
	}

	batch := []pendingWrite{
		{rec: &Record{Op: OpPut, Key: []byte("a"), Value: []byte("1")}, done: make(chan error, 1)},
		{rec: &Record{Op: OpPut, Key: []byte("b"), Value: []byte("2")}, done: make(chan error, 1)},
	}
	w.writeBatch(batch)

	if err := <-batch[0].done; err != nil {
		t.Fatalf("first record (written before the failure) reported a spurious error: %v", err)
	}
	if err := <-batch[1].done; err == nil {
		t.Fatal("second record should report the rotation failure that interrupted it")
	}
}

func TestWriterRejectsAppendAfterClose(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir, SyncNone)
	w.Close()
	if err := w.Append(context.Background(), &Record{Op: OpPut, Key: []byte("k")}); err != ErrClosed {
		t.Fatalf("Append after Close = %v, want ErrClosed", err)
	}
}

func TestSegmentPathNamingIsChronologicallySortable(t *testing.T) {
	dir := t.TempDir()
	p1 := segmentPath(dir, 1)
	p2 := segmentPath(dir, 2)
	if filepath.Base(p1) >= filepath.Base(p2) {
		t.Fatalf("segment names not lexically sortable: %s vs %s", p1, p2)
	}
}
