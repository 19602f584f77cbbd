package render

import (
	"errors"
	"sync/atomic"
)

// ErrStale marks a result that arrived after a newer request was issued.
var ErrStale = errors.New("superseded by a newer request")

// Sequencer tags requests with a monotonic number so that only the latest
// issued request may publish its result.
type Sequencer struct {
	last atomic.Uint64
}

func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

func (s *Sequencer) IsLatest(seq uint64) bool {
	return s.last.Load() == seq
}
