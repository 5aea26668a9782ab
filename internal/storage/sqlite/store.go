// Package sqlite keeps a history of pattern matches in a SQLite database.
// Frames themselves are never stored; each row records where a pattern was
// found in which frame.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// MatchRecord is one stored pattern occurrence.
type MatchRecord struct {
	ID            int64     `json:"id"`
	FrameID       uuid.UUID `json:"frame_id"`
	Seq           uint64    `json:"seq"`
	Stage         string    `json:"stage"`
	Row           int       `json:"row"`
	Col           int       `json:"col"`
	PatternWidth  int       `json:"pattern_width"`
	PatternHeight int       `json:"pattern_height"`
	DetectedAt    time.Time `json:"detected_at"`
}

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

// MatchStore persists MatchRecords. It is safe for concurrent use.
type MatchStore struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (creating if needed) the database at path, applies pragmas
// and runs the embedded migrations.
func Open(path string, log *zap.Logger) (*MatchStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open match store: %w", err)
	}
	// A single connection serialises writers from concurrent detector stages.
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &MatchStore{db: db, log: log.Named("store")}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *MatchStore) Close() error {
	return s.db.Close()
}

// Record inserts rec and returns its row id.
func (s *MatchStore) Record(ctx context.Context, rec MatchRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (frame_id, seq, stage, row_index, col_index, pattern_width, pattern_height, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FrameID.String(), int64(rec.Seq), rec.Stage, rec.Row, rec.Col,
		rec.PatternWidth, rec.PatternHeight, rec.DetectedAt.UnixNano(),
	)
	if err != nil {
		return 0, s.wrap("record match", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit records, newest first.
func (s *MatchStore) Recent(ctx context.Context, limit int) ([]MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT match_id, frame_id, seq, stage, row_index, col_index, pattern_width, pattern_height, detected_at
		FROM matches ORDER BY match_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, s.wrap("list matches", err)
	}
	return scanRecords(rows)
}

// ForFrame returns the records of one frame in insertion order, which is
// the detector's scan order.
func (s *MatchStore) ForFrame(ctx context.Context, frameID uuid.UUID) ([]MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT match_id, frame_id, seq, stage, row_index, col_index, pattern_width, pattern_height, detected_at
		FROM matches WHERE frame_id = ? ORDER BY match_id`, frameID.String())
	if err != nil {
		return nil, s.wrap("list frame matches", err)
	}
	return scanRecords(rows)
}

// Count returns the number of stored matches.
func (s *MatchStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&n); err != nil {
		return 0, s.wrap("count matches", err)
	}
	return n, nil
}

func (s *MatchStore) wrap(op string, err error) error {
	return fmt.Errorf("failed to %s: %w", op, err)
}

func scanRecords(rows *sql.Rows) ([]MatchRecord, error) {
	defer rows.Close()
	var out []MatchRecord
	for rows.Next() {
		var (
			rec     MatchRecord
			frameID string
			seq     int64
			nanos   int64
		)
		if err := rows.Scan(&rec.ID, &frameID, &seq, &rec.Stage, &rec.Row, &rec.Col,
			&rec.PatternWidth, &rec.PatternHeight, &nanos); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		id, err := uuid.Parse(frameID)
		if err != nil {
			return nil, fmt.Errorf("scan match %d: bad frame id: %w", rec.ID, err)
		}
		rec.FrameID = id
		rec.Seq = uint64(seq)
		rec.DetectedAt = time.Unix(0, nanos).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
