package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"chessclub/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS moves (
	id TEXT PRIMARY KEY,
	room_id TEXT NOT NULL,
	san TEXT NOT NULL,
	position TEXT NOT NULL,
	votes INTEGER NOT NULL,
	by_vote INTEGER NOT NULL,
	applied_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_moves_room_applied ON moves(room_id, applied_at);
`

// Store archives resolved moves to SQLite. Writes go through a single
// goroutine so RecordMove never blocks the caller; when the queue is full
// the record is dropped and logged.
type Store struct {
	db      *sql.DB
	records chan types.MoveRecord
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewStore(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	store := &Store{
		db:      db,
		records: make(chan types.MoveRecord, 256),
	}
	store.wg.Add(1)
	go store.writeLoop()
	return store, nil
}

// RecordMove queues one move for archival and returns immediately.
func (s *Store) RecordMove(record types.MoveRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.records <- record:
	default:
		log.Printf("Archive queue full, dropping move record for room %s", record.RoomID)
	}
}

func (s *Store) writeLoop() {
	defer s.wg.Done()
	for record := range s.records {
		err := s.insert(record)
		if err != nil {
			// One retry covers transient lock contention, then give up.
			err = s.insert(record)
		}
		if err != nil {
			log.Printf("Failed to archive move for room %s: %v", record.RoomID, err)
		}
	}
}

func (s *Store) insert(record types.MoveRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO moves (id, room_id, san, position, votes, by_vote, applied_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.RoomID, record.SAN, record.Position,
		record.Votes, record.ByVote, record.AppliedAt,
	)
	return err
}

// RoomHistory returns the most recent archived moves for a room, newest
// first, capped at limit.
func (s *Store) RoomHistory(ctx context.Context, roomID string, limit int) ([]types.MoveRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, san, position, votes, by_vote, applied_at
		 FROM moves WHERE room_id = ?
		 ORDER BY applied_at DESC LIMIT ?`,
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query moves: %w", err)
	}
	defer rows.Close()

	records := make([]types.MoveRecord, 0, limit)
	for rows.Next() {
		var record types.MoveRecord
		if err := rows.Scan(&record.ID, &record.RoomID, &record.SAN, &record.Position,
			&record.Votes, &record.ByVote, &record.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan move: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Close drains the write queue before shutting the database down.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.records)
	s.mu.Unlock()

	s.wg.Wait()
	return s.db.Close()
}
