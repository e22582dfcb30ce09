// Package database provides PostgreSQL conflict writing with batch support.
package database

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hervehildenbrand/bgp-conflicts/pkg/models"
	"github.com/lib/pq"
)

const (
	batchSize     = 500
	batchInterval = 2 * time.Second
	queueSize     = 10000
)

const createTable = `
CREATE TABLE IF NOT EXISTS bgp_conflicts (
	id              BIGSERIAL PRIMARY KEY,
	collector       TEXT        NOT NULL,
	detected_at     TIMESTAMPTZ NOT NULL,
	peer_as         BIGINT      NOT NULL,
	peer_ip         TEXT        NOT NULL,
	announce_type   CHAR(1)     NOT NULL,
	announce_prefix CIDR        NOT NULL,
	announce_asn    BIGINT      NOT NULL,
	as_path         TEXT        NOT NULL,
	conflict_prefix CIDR        NOT NULL,
	conflict_asn    BIGINT      NOT NULL
)`

// conflictColumns is the COPY column order; conflictRow must match it.
var conflictColumns = []string{
	"collector", "detected_at", "peer_as", "peer_ip",
	"announce_type", "announce_prefix", "announce_asn", "as_path",
	"conflict_prefix", "conflict_asn",
}

func conflictRow(c models.Conflict) []interface{} {
	return []interface{}{
		c.Collector,
		models.EpochTime(c.Timestamp),
		int64(c.PeerAS),
		c.PeerIP,
		c.Announce.Type,
		c.Announce.Prefix,
		int64(c.Announce.ASN),
		c.Announce.ASPath,
		c.ConflictWith.Prefix,
		int64(c.ConflictWith.ASN),
	}
}

// ConflictWriter handles batch writing of conflicts to PostgreSQL.
type ConflictWriter struct {
	db      *sql.DB
	queue   chan models.Conflict
	done    chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex

	// Stats
	conflictsWritten uint64
	conflictsDropped uint64
	batchesWritten   uint64
}

// NewConflictWriter connects to PostgreSQL and creates the conflicts table if needed.
func NewConflictWriter(databaseURL string) (*ConflictWriter, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("Connected to PostgreSQL database")

	return &ConflictWriter{
		db:    db,
		queue: make(chan models.Conflict, queueSize),
		done:  make(chan struct{}),
	}, nil
}

// Start begins the background writer goroutine.
func (w *ConflictWriter) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.writerLoop()
	log.Printf("Database conflict writer started")
}

// Stop gracefully shuts down the writer, flushing queued conflicts.
func (w *ConflictWriter) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()
	w.db.Close()
	log.Printf("Database conflict writer stopped (written=%d, dropped=%d, batches=%d)",
		atomic.LoadUint64(&w.conflictsWritten), atomic.LoadUint64(&w.conflictsDropped),
		atomic.LoadUint64(&w.batchesWritten))
}

// Write queues a conflict for batch writing. A full queue drops the conflict.
func (w *ConflictWriter) Write(_ context.Context, conflict models.Conflict) error {
	select {
	case w.queue <- conflict:
	default:
		dropped := atomic.AddUint64(&w.conflictsDropped, 1)
		if dropped%1000 == 0 {
			log.Printf("Conflict queue full, dropped %d conflicts", dropped)
		}
	}
	return nil
}

// Close stops the writer.
func (w *ConflictWriter) Close() error {
	w.Stop()
	return nil
}

// Stats returns writer statistics.
func (w *ConflictWriter) Stats() map[string]interface{} {
	return map[string]interface{}{
		"conflicts_written": atomic.LoadUint64(&w.conflictsWritten),
		"conflicts_dropped": atomic.LoadUint64(&w.conflictsDropped),
		"batches_written":   atomic.LoadUint64(&w.batchesWritten),
		"queue_len":         len(w.queue),
		"queue_cap":         cap(w.queue),
	}
}

func (w *ConflictWriter) writerLoop() {
	defer w.wg.Done()

	batch := make([]models.Conflict, 0, batchSize)
	ticker := time.NewTicker(batchInterval)
	defer ticker.Stop()

	for {
		select {
		case conflict := <-w.queue:
			batch = append(batch, conflict)
			if len(batch) >= batchSize {
				w.writeBatch(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.writeBatch(batch)
				batch = batch[:0]
			}

		case <-w.done:
			// Flush remaining conflicts
			for {
				select {
				case conflict := <-w.queue:
					batch = append(batch, conflict)
					if len(batch) >= batchSize {
						w.writeBatch(batch)
						batch = batch[:0]
					}
				default:
					if len(batch) > 0 {
						w.writeBatch(batch)
					}
					return
				}
			}
		}
	}
}

func (w *ConflictWriter) writeBatch(batch []models.Conflict) {
	if len(batch) == 0 {
		return
	}

	tx, err := w.db.Begin()
	if err != nil {
		log.Printf("Failed to begin transaction: %v", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(pq.CopyIn("bgp_conflicts", conflictColumns...))
	if err != nil {
		log.Printf("Failed to prepare COPY: %v", err)
		return
	}

	for _, conflict := range batch {
		if _, err := stmt.Exec(conflictRow(conflict)...); err != nil {
			log.Printf("Failed to copy conflict: %v", err)
			stmt.Close()
			return
		}
	}
	if _, err := stmt.Exec(); err != nil {
		log.Printf("Failed to flush COPY: %v", err)
		stmt.Close()
		return
	}
	if err := stmt.Close(); err != nil {
		log.Printf("Failed to close COPY: %v", err)
		return
	}

	if err := tx.Commit(); err != nil {
		log.Printf("Failed to commit batch: %v", err)
		return
	}

	atomic.AddUint64(&w.conflictsWritten, uint64(len(batch)))
	atomic.AddUint64(&w.batchesWritten, 1)
}
