// Package models defines data structures for route dump records, events and conflicts.
package models

import (
	"math"
	"time"
)

// SourceKind classifies a route dump source.
type SourceKind int

const (
	SourceUnknown  SourceKind = iota // classified from the first typed line
	SourceUpdates                    // incremental update stream
	SourceBaseline                   // full table snapshot (bview)
)

func (k SourceKind) String() string {
	switch k {
	case SourceBaseline:
		return "bview"
	case SourceUpdates:
		return "updates"
	}
	return "unknown"
}

// Source identifies one route dump input for a collector.
type Source struct {
	Name      string     // file path, URL or fixture name
	Kind      SourceKind // optional override, SourceUnknown classifies by content
	Unordered bool       // timestamps are not monotonic, buffer and sort before merging
}

// Record types as found in the "type" field of a dump line.
const (
	RecordTypeTableDump = "table_dump_v2"
	RecordTypeUpdate    = "update"
)

// Record is one parsed dump line: a BaselineView or an UpdateBatch.
type Record interface {
	RecordType() string
}

// PeerEntry is one peer's view of a prefix inside a baseline view.
type PeerEntry struct {
	PeerIP              string
	PeerAS              uint32
	OriginatedTimestamp float64 // metadata only
	ASPath              string
}

// BaselineView is a full-table snapshot of one prefix.
type BaselineView struct {
	Timestamp float64
	Prefix    string
	Entries   []PeerEntry
}

func (BaselineView) RecordType() string { return RecordTypeTableDump }

// UpdateBatch is one BGP update message from one peer.
type UpdateBatch struct {
	Timestamp float64
	PeerAS    uint32
	PeerIP    string
	ASPath    string
	Announce  []string
	Withdraw  []string
}

func (UpdateBatch) RecordType() string { return RecordTypeUpdate }

// EventKind distinguishes claims from withdrawals.
type EventKind int

const (
	Claim EventKind = iota
	Withdrawal
)

// Event is an atomic claim or withdrawal derived from a record.
type Event struct {
	Timestamp           float64
	Kind                EventKind
	SourceKind          SourceKind
	Prefix              string
	OriginASN           uint32
	PeerAS              uint32
	PeerIP              string
	ASPath              string
	OriginatedTimestamp float64
}

// EpochTime converts fractional seconds since the epoch to a time.Time.
func EpochTime(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
