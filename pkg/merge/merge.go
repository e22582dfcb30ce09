// Package merge combines per-source event streams into one time-ordered stream.
package merge

import (
	"container/heap"

	"github.com/hervehildenbrand/bgp-conflicts/pkg/models"
)

// Stream yields events in non-decreasing timestamp order.
type Stream interface {
	Next() (models.Event, bool, error)
}

type head struct {
	event  models.Event
	stream int
}

// heads is a min-heap ordered by (timestamp, stream index).
type heads []head

func (h heads) Len() int { return len(h) }
func (h heads) Less(i, j int) bool {
	if h[i].event.Timestamp != h[j].event.Timestamp {
		return h[i].event.Timestamp < h[j].event.Timestamp
	}
	return h[i].stream < h[j].stream
}
func (h heads) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *heads) Push(x interface{}) { *h = append(*h, x.(head)) }
func (h *heads) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Merger is a streaming k-way merge holding at most one event per stream.
// Equal timestamps come out in stream order, and within a stream in the
// stream's own order.
type Merger struct {
	streams []Stream
	heads   heads
	primed  bool
	refill  int // stream whose head was last returned, -1 if none
}

// New creates a merger over the given streams. Nothing is read until Next.
func New(streams ...Stream) *Merger {
	return &Merger{streams: streams, refill: -1}
}

// Next returns the globally next event.
func (m *Merger) Next() (models.Event, bool, error) {
	if !m.primed {
		m.heads = make(heads, 0, len(m.streams))
		for i, s := range m.streams {
			ev, ok, err := s.Next()
			if err != nil {
				return models.Event{}, false, err
			}
			if ok {
				m.heads = append(m.heads, head{event: ev, stream: i})
			}
		}
		heap.Init(&m.heads)
		m.primed = true
	}

	// Refill from the stream that produced the previous event.
	if m.refill >= 0 {
		i := m.refill
		m.refill = -1
		if err := m.advance(i); err != nil {
			return models.Event{}, false, err
		}
	}

	if len(m.heads) == 0 {
		return models.Event{}, false, nil
	}

	top := heap.Pop(&m.heads).(head)
	m.refill = top.stream
	return top.event, true, nil
}

// advance pulls the next head of stream i, if any.
func (m *Merger) advance(i int) error {
	ev, ok, err := m.streams[i].Next()
	if err != nil {
		return err
	}
	if ok {
		heap.Push(&m.heads, head{event: ev, stream: i})
	}
	return nil
}
