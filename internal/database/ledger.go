// Package database provides the page ledger
package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-while/go-numfeed/internal/models"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
)

const DefaultLedgerQueue = 1024

// LedgerDB records every served page for later inspection.
// It is write-only from the request path and never feeds the cursor back.
type LedgerDB struct {
	db      *sql.DB
	queue   chan *models.LedgerEntry
	wg      sync.WaitGroup
	mux     sync.RWMutex // guards closed against Record
	closed  bool
	dropped atomic.Int64
}

// NewLedgerDB opens (or creates) dataDir/ledger.db and starts the writer
func NewLedgerDB(dataDir string, queueSize int) (*LedgerDB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if queueSize <= 0 {
		queueSize = DefaultLedgerQueue
	}

	dbPath := filepath.Join(dataDir, "ledger.db")
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	db.SetMaxOpenConns(1)

	ledger := &LedgerDB{
		db:    db,
		queue: make(chan *models.LedgerEntry, queueSize),
	}
	if err := ledger.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ledger.wg.Add(1)
	go ledger.writer()

	log.Printf("[LEDGER]: Ledger database initialized at: %s", dbPath)
	return ledger, nil
}

const query_ledger_initSchema = `
CREATE TABLE IF NOT EXISTS ledger (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	start_index INTEGER NOT NULL,
	end_index INTEGER NOT NULL,
	page_size INTEGER NOT NULL,
	count INTEGER NOT NULL,
	served_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledger_served_at
ON ledger(served_at);
`

func (l *LedgerDB) initSchema() error {
	_, err := retryableExec(l.db, query_ledger_initSchema)
	return err
}

// Record queues an entry without blocking.
// It returns false when the ledger is closed or the queue is full.
func (l *LedgerDB) Record(entry *models.LedgerEntry) bool {
	if entry == nil {
		return false
	}
	l.mux.RLock()
	defer l.mux.RUnlock()
	if l.closed {
		return false
	}
	if entry.ServedAt.IsZero() {
		entry.ServedAt = time.Now().UTC()
	}
	select {
	case l.queue <- entry:
		return true
	default:
		if n := l.dropped.Add(1); n == 1 || n%100 == 0 {
			log.Printf("[LEDGER]: Warning: queue full, dropped %d entries so far", n)
		}
		return false
	}
}

// Dropped returns how many entries were lost to a full queue
func (l *LedgerDB) Dropped() int64 {
	return l.dropped.Load()
}

const query_ledger_insert = `
INSERT INTO ledger (request_id, start_index, end_index, page_size, count, served_at)
VALUES (?, ?, ?, ?, ?, ?)
`

// writer is the single consumer of the queue
func (l *LedgerDB) writer() {
	defer l.wg.Done()
	for entry := range l.queue {
		_, err := retryableExec(l.db, query_ledger_insert,
			entry.RequestID, entry.StartIndex, entry.EndIndex, entry.PageSize, entry.Count, entry.ServedAt)
		if err != nil {
			log.Printf("[LEDGER]: Error writing entry %s: %v", entry.RequestID, err)
		}
	}
}

const query_ledger_recent = `
SELECT id, request_id, start_index, end_index, page_size, count, served_at
FROM ledger
ORDER BY id DESC
LIMIT ?
`

// Recent returns the last limit entries, newest first
func (l *LedgerDB) Recent(limit int) ([]*models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := retryableQuery(l.db, query_ledger_recent, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		if err := rows.Scan(&entry.ID, &entry.RequestID, &entry.StartIndex, &entry.EndIndex,
			&entry.PageSize, &entry.Count, &entry.ServedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

const query_ledger_totals = `
SELECT COUNT(*), COALESCE(SUM(end_index - start_index), 0), COALESCE(MAX(end_index), 0)
FROM ledger
`

// Totals summarizes everything written so far
func (l *LedgerDB) Totals() (*models.LedgerTotals, error) {
	var totals models.LedgerTotals
	err := retryableQueryRowScan(l.db, query_ledger_totals, nil, &totals.Pages, &totals.Numbers, &totals.LastIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger totals: %w", err)
	}
	return &totals, nil
}

// Close stops accepting entries, drains the queue and closes the database
func (l *LedgerDB) Close() error {
	l.mux.Lock()
	if l.closed {
		l.mux.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mux.Unlock()

	l.wg.Wait()
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}
