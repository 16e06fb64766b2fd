package writer

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type memWriter struct {
	mu      sync.Mutex
	batches [][]int
	closed  bool
}

func (m *memWriter) BWrite(ctx context.Context, batch []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]int, len(batch))
	copy(cp, batch)
	m.batches = append(m.batches, cp)
	return nil
}

func (m *memWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memWriter) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func TestAsyncBatchWriterFlushOnBatchSize(t *testing.T) {
	mem := &memWriter{}
	w := NewAsyncBatchWriter[int](zap.NewNop(), mem, 3, time.Hour, "test", 1)
	w.Start(context.Background())

	for i := 0; i < 6; i++ {
		w.Submit(i)
	}
	w.Close()

	if got := mem.total(); got != 6 {
		t.Fatalf("expected 6 items written, got %d", got)
	}
	if !mem.closed {
		t.Fatal("underlying writer must be closed")
	}
}

// Close排空通道中的残余条目
func TestAsyncBatchWriterDrainsOnClose(t *testing.T) {
	mem := &memWriter{}
	w := NewAsyncBatchWriter[int](zap.NewNop(), mem, 100, time.Hour, "test", 1)
	w.Start(context.Background())

	w.Submit(1)
	w.Submit(2)
	w.Close()

	if got := mem.total(); got != 2 {
		t.Fatalf("expected pending items flushed on close, got %d", got)
	}
}
