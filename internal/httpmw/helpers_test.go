package httpmw

import (
	"context"
	"net/http"
	"sync"

	"github.com/beaconhillfe/bhfe-web/internal/log"
)

type logEntry struct {
	level string
	msg   string
	err   error
	kv    []any
}

// spyLogger records every call and returns itself from With, so fields
// added by middleware land in withs.
type spyLogger struct {
	mu      sync.Mutex
	entries []logEntry
	withs   [][]any
}

func (s *spyLogger) With(kv ...any) log.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withs = append(s.withs, kv)
	return s
}

func (s *spyLogger) add(e logEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func (s *spyLogger) Debug(_ context.Context, msg string, kv ...any) {
	s.add(logEntry{level: "debug", msg: msg, kv: kv})
}

func (s *spyLogger) Info(_ context.Context, msg string, kv ...any) {
	s.add(logEntry{level: "info", msg: msg, kv: kv})
}

func (s *spyLogger) Warn(_ context.Context, msg string, kv ...any) {
	s.add(logEntry{level: "warn", msg: msg, kv: kv})
}

func (s *spyLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	s.add(logEntry{level: "error", msg: msg, err: err, kv: kv})
}

func (s *spyLogger) Sync() error { return nil }

func (s *spyLogger) byLevel(level string) []logEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []logEntry
	for _, e := range s.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

// field returns the value following key in kv.
func field(kv []any, key string) (any, bool) {
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] == key {
			return kv[i+1], true
		}
	}
	return nil, false
}

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
}
