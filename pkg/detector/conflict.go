// Package detector replays route dumps in event-time order and reports
// origin conflicts against the prefixes seen so far.
package detector

import (
	"context"
	"errors"
	"fmt"

	"github.com/hervehildenbrand/bgp-conflicts/pkg/dump"
	"github.com/hervehildenbrand/bgp-conflicts/pkg/merge"
	"github.com/hervehildenbrand/bgp-conflicts/pkg/models"
	"github.com/hervehildenbrand/bgp-conflicts/pkg/registry"
)

// ErrNoBaselineViews is returned when no source classifies as a bview.
var ErrNoBaselineViews = errors.New("no bviews were loaded")

// Stats summarises a detection run.
type Stats struct {
	dump.Stats
	EventsDropped uint64 // events with an unparseable prefix
	Withdrawals   uint64
	Claims        uint64
	Conflicts     uint64
	Prefixes      int // registry size
}

type eventStream interface {
	merge.Stream
	Kind() (models.SourceKind, error)
	Stats() dump.Stats
	Close() error
}

// Conflicts lazily yields origin conflicts. Use it like sql.Rows:
//
//	c := detector.DetectConflicts(ctx, "rrc00", sources, opener)
//	defer c.Close()
//	for c.Next() {
//		handle(c.Conflict())
//	}
//	if err := c.Err(); err != nil { ... }
type Conflicts struct {
	ctx       context.Context
	collector string
	sources   []models.Source
	opener    dump.Opener

	started  bool
	done     bool
	err      error
	streams  []eventStream
	merger   *merge.Merger
	registry *registry.Registry
	current  models.Conflict
	stats    Stats
}

// DetectConflicts prepares a detection run over sources for one collector.
// Nothing is validated or opened until the first call to Next.
func DetectConflicts(ctx context.Context, collector string, sources []models.Source, opener dump.Opener) *Conflicts {
	return &Conflicts{
		ctx:       ctx,
		collector: collector,
		sources:   sources,
		opener:    opener,
	}
}

// Next advances to the next conflict. It returns false when the sources are
// exhausted or an error occurred; check Err afterwards.
func (c *Conflicts) Next() bool {
	if c.done {
		return false
	}
	if !c.started {
		c.started = true
		if err := c.start(); err != nil {
			c.fail(err)
			return false
		}
	}

	for {
		if err := c.ctx.Err(); err != nil {
			c.fail(err)
			return false
		}

		ev, ok, err := c.merger.Next()
		if err != nil {
			c.fail(err)
			return false
		}
		if !ok {
			c.finish()
			return false
		}

		if conflict, found := c.process(ev); found {
			c.current = conflict
			return true
		}
	}
}

// Conflict returns the conflict produced by the last successful Next.
func (c *Conflicts) Conflict() models.Conflict {
	return c.current
}

// Err returns the error that stopped iteration, if any.
func (c *Conflicts) Err() error {
	return c.err
}

// Close releases every open source. Safe to call at any point, more than once.
func (c *Conflicts) Close() error {
	c.done = true
	return c.closeStreams()
}

// Stats returns counters for the run so far.
func (c *Conflicts) Stats() Stats {
	stats := c.stats
	stats.Stats = dump.Stats{}
	for _, s := range c.streams {
		stats.Stats.Add(s.Stats())
	}
	if c.registry != nil {
		stats.Prefixes = c.registry.Len()
	}
	return stats
}

func (c *Conflicts) start() error {
	if len(c.sources) == 0 {
		return ErrNoBaselineViews
	}

	streams := make([]merge.Stream, 0, len(c.sources))
	for _, src := range c.sources {
		rc, err := c.opener.Open(c.ctx, src)
		if err != nil {
			return fmt.Errorf("open %s: %w", src.Name, err)
		}
		source := dump.NewSourceStream(src, rc)
		var stream eventStream = source
		if src.Unordered {
			sorted, err := dump.NewSortedStream(source)
			if err != nil {
				source.Close()
				return err
			}
			stream = sorted
		}
		c.streams = append(c.streams, stream)
		streams = append(streams, stream)
	}

	// Sources are classified by content unless their descriptor says otherwise.
	hasBaseline := false
	for _, s := range c.streams {
		kind, err := s.Kind()
		if err != nil {
			return err
		}
		if kind == models.SourceBaseline {
			hasBaseline = true
			break
		}
	}
	if !hasBaseline {
		return ErrNoBaselineViews
	}

	c.registry = registry.New()
	c.merger = merge.New(streams...)
	return nil
}

// process applies one event to the registry and reports a conflict if the
// claim collides with a different registered origin.
func (c *Conflicts) process(ev models.Event) (models.Conflict, bool) {
	pfx, err := registry.ParsePrefix(ev.Prefix)
	if err != nil {
		c.stats.EventsDropped++
		return models.Conflict{}, false
	}

	if ev.Kind == models.Withdrawal {
		c.stats.Withdrawals++
		c.registry.Remove(pfx)
		return models.Conflict{}, false
	}
	c.stats.Claims++

	owner, found := c.registry.LookupCovering(pfx)
	c.registry.Upsert(pfx, ev.Prefix, ev.OriginASN, ev.Timestamp)

	// First seen or consistent re-announcement
	if !found || owner.OriginASN == ev.OriginASN {
		return models.Conflict{}, false
	}

	c.stats.Conflicts++
	return models.Conflict{
		Timestamp: ev.Timestamp,
		Collector: c.collector,
		PeerAS:    ev.PeerAS,
		PeerIP:    ev.PeerIP,
		Announce: models.Announce{
			Type:   models.AnnounceType(ev.SourceKind),
			Prefix: ev.Prefix,
			ASN:    ev.OriginASN,
			ASPath: ev.ASPath,
		},
		ConflictWith: models.ConflictWith{
			ASN:    owner.OriginASN,
			Prefix: owner.Prefix,
		},
		ASN: owner.OriginASN,
	}, true
}

func (c *Conflicts) fail(err error) {
	c.err = err
	c.done = true
	c.closeStreams()
}

func (c *Conflicts) finish() {
	c.done = true
	if err := c.closeStreams(); err != nil {
		c.err = err
	}
}

func (c *Conflicts) closeStreams() error {
	var errs []error
	for _, s := range c.streams {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
