// Package sink delivers detected conflicts to their destinations.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/hervehildenbrand/bgp-conflicts/pkg/models"
)

// Sink receives conflicts.
type Sink interface {
	Write(ctx context.Context, conflict models.Conflict) error
	Close() error
}

// JSONLines writes one JSON object per conflict.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLines creates a sink writing to w.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

func (s *JSONLines) Write(_ context.Context, conflict models.Conflict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(conflict)
}

func (s *JSONLines) Close() error { return nil }

// Multi fans a conflict out to several sinks. Every sink is written even if
// an earlier one fails; the errors are joined.
type Multi []Sink

func (m Multi) Write(ctx context.Context, conflict models.Conflict) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, conflict); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
