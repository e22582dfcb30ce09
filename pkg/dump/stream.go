package dump

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/hervehildenbrand/bgp-conflicts/pkg/models"
)

// maxLineSize bounds a single dump line; bview lines for busy prefixes get large.
// Longer lines are skipped and counted as dropped.
const maxLineSize = 16 * 1024 * 1024

// Stats counts what a stream has consumed.
type Stats struct {
	Lines          uint64
	Records        uint64
	RecordsDropped uint64
	Events         uint64
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Lines += other.Lines
	s.Records += other.Records
	s.RecordsDropped += other.RecordsDropped
	s.Events += other.Events
}

// SourceStream yields the events of one opened source, one line at a time.
// Only the events of the current record are buffered.
type SourceStream struct {
	source  models.Source
	rc      io.ReadCloser
	reader  *bufio.Reader
	maxLine int
	line    []byte
	kind    models.SourceKind
	pending []models.Event
	stats   Stats
	closed  bool
}

// NewSourceStream wraps an opened source. A Kind set on the descriptor
// overrides classification by content.
func NewSourceStream(source models.Source, rc io.ReadCloser) *SourceStream {
	return &SourceStream{
		source:  source,
		rc:      rc,
		reader:  bufio.NewReaderSize(rc, 64*1024),
		maxLine: maxLineSize,
		kind:    source.Kind,
	}
}

// Stats returns counters for this stream.
func (s *SourceStream) Stats() Stats { return s.stats }

// Kind classifies the source by the type of its first typed line, reading
// ahead as needed. Events read ahead stay buffered for Next. A source with
// no typed line reports SourceUnknown.
func (s *SourceStream) Kind() (models.SourceKind, error) {
	for s.kind == models.SourceUnknown {
		more, err := s.readRecord()
		if err != nil {
			return models.SourceUnknown, err
		}
		if !more {
			break
		}
	}
	return s.kind, nil
}

// Next returns the next event. The underlying reader is closed once the
// source is exhausted or fails.
func (s *SourceStream) Next() (models.Event, bool, error) {
	for len(s.pending) == 0 {
		more, err := s.readRecord()
		if err != nil || !more {
			return models.Event{}, false, err
		}
	}

	ev := s.pending[0]
	s.pending = s.pending[1:]
	s.stats.Events++
	return ev, true, nil
}

// readRecord consumes one non-empty line, buffering the events of its record.
// It returns false once the source is exhausted.
func (s *SourceStream) readRecord() (bool, error) {
	for {
		if s.closed {
			return false, nil
		}

		line, tooLong, err := s.readLine()
		if err != nil {
			closeErr := s.Close()
			if err != io.EOF {
				return false, fmt.Errorf("read %s: %w", s.source.Name, err)
			}
			if closeErr != nil {
				return false, fmt.Errorf("close %s: %w", s.source.Name, closeErr)
			}
			return false, nil
		}
		if len(line) == 0 && !tooLong {
			continue
		}
		s.stats.Lines++
		if tooLong {
			s.stats.RecordsDropped++
			return true, nil
		}

		if s.kind == models.SourceUnknown {
			if kind, ok := LineKind(line); ok {
				s.kind = kind
			}
		}

		rec, ok := ParseLine(line)
		if !ok {
			s.stats.RecordsDropped++
			return true, nil
		}
		s.stats.Records++
		s.pending = append(s.pending, Expand(rec)...)
		return true, nil
	}
}

// readLine returns the next line without its terminator. The slice is only
// valid until the next call. Lines longer than maxLine are discarded.
func (s *SourceStream) readLine() ([]byte, bool, error) {
	s.line = s.line[:0]
	tooLong := false
	for {
		chunk, isPrefix, err := s.reader.ReadLine()
		if err != nil {
			if err == io.EOF && (len(s.line) > 0 || tooLong) {
				return s.line, tooLong, nil
			}
			return nil, false, err
		}
		if !tooLong {
			if len(s.line)+len(chunk) > s.maxLine {
				tooLong = true
				s.line = s.line[:0]
			} else {
				s.line = append(s.line, chunk...)
			}
		}
		if !isPrefix {
			return s.line, tooLong, nil
		}
	}
}

// Close releases the underlying reader. Safe to call more than once.
func (s *SourceStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.pending = nil
	return s.rc.Close()
}

// SortedStream replays a fully drained source in timestamp order.
// Used for sources whose timestamps are not monotonic.
type SortedStream struct {
	events []models.Event
	kind   models.SourceKind
	stats  Stats
}

// NewSortedStream drains src and stable-sorts its events by timestamp.
func NewSortedStream(src *SourceStream) (*SortedStream, error) {
	var events []models.Event
	for {
		ev, ok, err := src.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
	kind, err := src.Kind()
	if err != nil {
		return nil, err
	}
	return &SortedStream{events: events, kind: kind, stats: src.Stats()}, nil
}

// Stats returns the counters of the drained source.
func (s *SortedStream) Stats() Stats { return s.stats }

// Kind returns the classification of the drained source.
func (s *SortedStream) Kind() (models.SourceKind, error) { return s.kind, nil }

// Next returns the next event in timestamp order.
func (s *SortedStream) Next() (models.Event, bool, error) {
	if len(s.events) == 0 {
		return models.Event{}, false, nil
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, true, nil
}

// Close drops any remaining events.
func (s *SortedStream) Close() error {
	s.events = nil
	return nil
}
