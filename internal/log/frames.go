package log

import (
	"fmt"
	"runtime"
	"strings"
)

// internalFrame reports frames that belong to logging plumbing rather than
// the caller.
func internalFrame(fn string) bool {
	return strings.HasPrefix(fn, "log/slog.") ||
		strings.Contains(fn, "/internal/log.") ||
		strings.Contains(fn, "/internal/xerrors.")
}

// renderPCs formats pcs as func/file:line pairs, starting at the first
// caller frame and stopping at the runtime.
func renderPCs(pcs []uintptr) string {
	if len(pcs) == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs)
	var b strings.Builder
	started := false
	for {
		fr, more := frames.Next()
		if strings.HasPrefix(fr.Function, "runtime.") {
			break
		}
		if !started && !internalFrame(fr.Function) {
			started = true
		}
		if started {
			fmt.Fprintf(&b, "%s\n\t%s:%d\n", fr.Function, fr.File, fr.Line)
		}
		if !more {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

func frameFromPC(pc uintptr) (runtime.Frame, bool) {
	if pc == 0 {
		return runtime.Frame{}, false
	}
	fr, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return fr, fr.Function != ""
}

func firstExtFrame(pcs []uintptr) (runtime.Frame, bool) {
	if len(pcs) == 0 {
		return runtime.Frame{}, false
	}
	frames := runtime.CallersFrames(pcs)
	for {
		fr, more := frames.Next()
		if !strings.HasPrefix(fr.Function, "runtime.") && !internalFrame(fr.Function) {
			return fr, true
		}
		if !more {
			return runtime.Frame{}, false
		}
	}
}
