package hashrt

import (
	"xcheck.dev/pkg/xcheck/pkg/checklog"
)

// logSink persists emitted checks through the on-disk check log.
type logSink struct {
	log *checklog.Log
}

// NewLogSink returns a sink appending every check to a gob log at path,
// together with a close function flushing it.
func NewLogSink(path string) (Sink, func() error, error) {
	l, err := checklog.Create(path)
	if err != nil {
		return nil, nil, err
	}

	return &logSink{log: l}, l.Close, nil
}

func (s *logSink) Emit(tag Tag, hash uint64) {
	_ = s.log.Append(checklog.Entry{Tag: uint8(tag), Hash: hash})
}
