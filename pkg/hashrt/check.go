package hashrt

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Tag identifies the program point a cross-check payload belongs to. The
// values mirror the instrumentation engine's tag list and must stay stable
// across the two compared programs.
type Tag uint8

// Check tags.
const (
	TagUnknown Tag = iota
	TagFunctionEntry
	TagFunctionExit
	TagFunctionArg
	TagFunctionReturn
)

// String returns the short wire label of the tag.
func (t Tag) String() string {
	switch t {
	case TagFunctionEntry:
		return "Ent"
	case TagFunctionExit:
		return "Exi"
	case TagFunctionArg:
		return "Arg"
	case TagFunctionReturn:
		return "Ret"
	}

	return "Unk"
}

// Sink receives every emitted cross-check. How the records reach the
// comparison side is out of scope here; a sink just has to persist or forward
// them in order.
type Sink interface {
	Emit(tag Tag, hash uint64)
}

var (
	sinkMu      sync.Mutex
	currentSink Sink = &writerSink{w: os.Stderr}
)

// SetSink replaces the process-wide check sink and returns the previous one.
func SetSink(s Sink) Sink {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	prev := currentSink
	currentSink = s

	return prev
}

// Check emits one cross-check record.
func Check(tag Tag, hash uint64) {
	sinkMu.Lock()
	s := currentSink
	sinkMu.Unlock()

	if s != nil {
		s.Emit(tag, hash)
	}
}

// CheckValue hashes v with the given hasher pair and emits the result.
func CheckValue[HA, HS CrossCheckHasher](tag Tag, v any) {
	Check(tag, HashValue[HA, HS](v))
}

// writerSink renders checks as one text line per record.
type writerSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink returns a sink printing "XCHECK(tag):hash" lines to w.
func NewWriterSink(w io.Writer) Sink {
	return &writerSink{w: w}
}

func (s *writerSink) Emit(tag Tag, hash uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.w, "XCHECK(%s):%d\n", tag, hash)
}

// MemorySink records checks in memory, mainly for tests.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

// Record is one emitted cross-check.
type Record struct {
	Tag  Tag
	Hash uint64
}

// Emit appends the record.
func (s *MemorySink) Emit(tag Tag, hash uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, Record{Tag: tag, Hash: hash})
}

// Records returns a copy of everything emitted so far.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Record(nil), s.records...)
}

// Reset drops all recorded checks.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
}
