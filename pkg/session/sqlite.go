package session

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"grindhub/pkg/logx"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// gooseMu guards goose's package-level base FS and dialect.
var gooseMu sync.Mutex //nolint:gochecknoglobals // goose configuration is global

// SQLiteStore persists sessions in a SQLite database. Idle sessions are filtered on
// read and removed by Sweep.
type SQLiteStore struct {
	db     *sql.DB
	idle   time.Duration
	now    func() time.Time
	logger *logx.Logger
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string, idle time.Duration) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger := logx.NewLogger("session")
	logger.Info("session database ready: %s", path)
	return &SQLiteStore{db: db, idle: idle, now: time.Now, logger: logger}, nil
}

func migrate(db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

func (s *SQLiteStore) Load(ctx context.Context, userID string) (*Session, error) {
	var (
		running string
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT running_context, updated_at FROM sessions WHERE user_id = ?`, userID,
	).Scan(&running, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return New(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", userID, err)
	}

	sess := &Session{UserID: userID, RunningContext: running, UpdatedAt: time.UnixMilli(updated)}
	if s.idle > 0 && s.now().Sub(sess.UpdatedAt) > s.idle {
		return New(userID), nil
	}
	return sess, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, running_context, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			running_context = excluded.running_context,
			updated_at = excluded.updated_at`,
		sess.UserID, sess.RunningContext, sess.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.UserID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete session %s: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
