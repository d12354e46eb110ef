package pcd

import (
	"io"
	"log"
	"sync"
)

// Stream names one of the three log streams a load reports on.
type Stream int

const (
	// StreamOps carries load lifecycle and failures.
	StreamOps Stream = iota
	// StreamDiag carries counts, timings and the anchor choice.
	StreamDiag
	// StreamTrace carries per-batch and per-node detail.
	StreamTrace

	numStreams
)

func (s Stream) String() string {
	switch s {
	case StreamOps:
		return "ops"
	case StreamDiag:
		return "diag"
	case StreamTrace:
		return "trace"
	}
	return "unknown"
}

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

// Verbosity selects how many streams a single writer receives.
type Verbosity int

const (
	Quiet   Verbosity = iota // ops only
	Verbose                  // ops and diag
	Tracing                  // all three
)

// WritersFor routes every stream enabled at v to w.
func WritersFor(w io.Writer, v Verbosity) LogWriters {
	lw := LogWriters{Ops: w}
	if v >= Verbose {
		lw.Diag = w
	}
	if v >= Tracing {
		lw.Trace = w
	}
	return lw
}

var (
	mu      sync.RWMutex
	loggers [numStreams]*log.Logger
)

// SetLogWriters configures all three logging streams at once.
// Pass nil for any writer to disable that stream. Each line is tagged with
// its stream so they stay distinguishable when they share a writer.
func SetLogWriters(w LogWriters) {
	mu.Lock()
	defer mu.Unlock()
	for s, out := range [numStreams]io.Writer{w.Ops, w.Diag, w.Trace} {
		loggers[s] = nil
		if out != nil {
			loggers[s] = log.New(out, "[pcd] "+Stream(s).String()+": ", log.LstdFlags|log.Lmicroseconds)
		}
	}
}

func logf(s Stream, format string, args ...interface{}) {
	mu.RLock()
	l := loggers[s]
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Opsf logs to the ops stream.
func Opsf(format string, args ...interface{}) { logf(StreamOps, format, args...) }

// Diagf logs to the diag stream.
func Diagf(format string, args ...interface{}) { logf(StreamDiag, format, args...) }

// Tracef logs to the trace stream.
func Tracef(format string, args ...interface{}) { logf(StreamTrace, format, args...) }

// Enabled reports whether s has a writer. Callers use it to skip building
// per-point diagnostics nobody will read.
func Enabled(s Stream) bool {
	mu.RLock()
	defer mu.RUnlock()
	return s >= 0 && s < numStreams && loggers[s] != nil
}

// DiagEnabled and TraceEnabled are shorthands for Enabled.
func DiagEnabled() bool  { return Enabled(StreamDiag) }
func TraceEnabled() bool { return Enabled(StreamTrace) }
