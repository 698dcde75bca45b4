package quant

import (
	"sync"
	"testing"

	"github.com/lowbit-ml/lowbit/internal/logger"
)

// recordingLogger captures warnings so tests can assert on the
// warn-and-continue contract.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (r *recordingLogger) Debug(string, ...any) {}
func (r *recordingLogger) Info(string, ...any)  {}
func (r *recordingLogger) Error(string, ...any) {}

func (r *recordingLogger) Warn(msg string, _ ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warns = append(r.warns, msg)
}

func (r *recordingLogger) With(...any) logger.Logger { return r }

func (r *recordingLogger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.warns)
}

// captureWarnings swaps in a recording logger for the duration of a test.
func captureWarnings(t *testing.T) *recordingLogger {
	t.Helper()
	rec := &recordingLogger{}
	prev := log
	SetLogger(rec)
	t.Cleanup(func() { SetLogger(prev) })
	return rec
}
