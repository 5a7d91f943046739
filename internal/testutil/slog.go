package testutil

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
)

// CaptureSlog routes the default slog logger into a buffer for the rest
// of the test and restores the previous logger on cleanup.
func CaptureSlog(t testing.TB, level slog.Level) *SyncBuffer {
	t.Helper()
	buf := &SyncBuffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

// SyncBuffer is a bytes.Buffer safe for concurrent writers.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
