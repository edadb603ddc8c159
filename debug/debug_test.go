package debug

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForLog(t *testing.T, out *syncBuffer, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), msg) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %q record logged; got %s", msg, out.String())
}

func TestLoggersReportAndStop(t *testing.T) {
	out := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(out, nil))
	ctx, cancel := context.WithCancel(context.Background())
	StartGoroutineLogger(ctx, 5*time.Millisecond, logger)
	StartMemLogger(ctx, 5*time.Millisecond, logger)
	waitForLog(t, out, `"msg":"goroutine-stacks"`)
	waitForLog(t, out, `"msg":"memstats"`)
	cancel()
}

func TestLoggersIgnoreNilLogger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartGoroutineLogger(ctx, time.Millisecond, nil)
	StartMemLogger(ctx, time.Millisecond, nil)
}
