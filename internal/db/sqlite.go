package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/juliusdelta/oatmeal/internal/api"
	"github.com/juliusdelta/oatmeal/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteSessionStore is a durable single-node session store.
type SQLiteSessionStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	duration_seconds REAL NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS segments (
	session_id TEXT NOT NULL,
	channel TEXT NOT NULL,
	pos INTEGER NOT NULL,
	start_time REAL NOT NULL,
	end_time REAL NOT NULL,
	text TEXT NOT NULL,
	PRIMARY KEY (session_id, channel, pos)
);
CREATE TABLE IF NOT EXISTS audio (
	session_id TEXT NOT NULL,
	channel TEXT NOT NULL,
	data BLOB NOT NULL,
	PRIMARY KEY (session_id, channel)
);`

// NewSQLiteSessionStore opens (and if needed initializes) the store at path.
func NewSQLiteSessionStore(ctx context.Context, path string) (*SQLiteSessionStore, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := sdb.PingContext(ctx); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := sdb.ExecContext(ctx, sqliteSchema); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	goapp.Log.Info().Str("path", path).Msg("sqlite store ready")
	return &SQLiteSessionStore{db: sdb}, nil
}

func (s *SQLiteSessionStore) SaveSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id, timestamp, duration_seconds) VALUES(?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET timestamp = excluded.timestamp,
			duration_seconds = excluded.duration_seconds`,
		session.ID, session.Timestamp, session.DurationSeconds)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var res domain.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, timestamp, duration_seconds FROM sessions WHERE id = ?`, id).
		Scan(&res.ID, &res.Timestamp, &res.DurationSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &res, nil
}

func (s *SQLiteSessionStore) SaveSegments(ctx context.Context, id, channel string, segments []api.Segment) error {
	if _, err := s.GetSession(ctx, id); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM segments WHERE session_id = ? AND channel = ?`, id, channel); err != nil {
		return fmt.Errorf("clear segments: %w", err)
	}
	for i, seg := range segments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO segments(session_id, channel, pos, start_time, end_time, text) VALUES(?, ?, ?, ?, ?, ?)`,
			id, channel, i, seg.Timestamp[0], seg.Timestamp[1], seg.Text); err != nil {
			return fmt.Errorf("insert segment: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteSessionStore) GetSegments(ctx context.Context, id, channel string) ([]api.Segment, error) {
	if _, err := s.GetSession(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT start_time, end_time, text FROM segments WHERE session_id = ? AND channel = ? ORDER BY pos`,
		id, channel)
	if err != nil {
		return nil, fmt.Errorf("get segments: %w", err)
	}
	defer rows.Close()

	var res []api.Segment
	for rows.Next() {
		var seg api.Segment
		if err := rows.Scan(&seg.Timestamp[0], &seg.Timestamp[1], &seg.Text); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		res = append(res, seg)
	}
	return res, rows.Err()
}

func (s *SQLiteSessionStore) SaveAudio(ctx context.Context, id, channel string, chunks [][]byte) error {
	if _, err := s.GetSession(ctx, id); err != nil {
		return err
	}
	data, err := toWav(chunks)
	if err != nil {
		return fmt.Errorf("convert to wav: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audio(session_id, channel, data) VALUES(?, ?, ?)
		 ON CONFLICT(session_id, channel) DO UPDATE SET data = excluded.data`,
		id, channel, data)
	if err != nil {
		return fmt.Errorf("save audio: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) GetAudio(ctx context.Context, id, channel string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM audio WHERE session_id = ? AND channel = ?`, id, channel).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audio: %w", err)
	}
	return data, nil
}

func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}
