// Package backup snapshots the live SQLite database and restores uploaded
// copies into it.
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const stampLayout = "20060102_150405"

type Options struct {
	DatabasePath string
	Dir          string // staging and safety snapshots
	Prefix       string // download file name prefix
}

// Manager serializes snapshots and restores of one database.
type Manager struct {
	mu   sync.Mutex
	db   *sqlx.DB
	opts Options
	log  *zap.Logger
	now  func() time.Time
}

func NewManager(db *sqlx.DB, opts Options, log *zap.Logger) *Manager {
	if opts.Prefix == "" {
		opts.Prefix = "inventory-backup"
	}
	return &Manager{db: db, opts: opts, log: log, now: time.Now}
}

// Snapshot is a consistent copy of the database written to a temporary file.
// The caller streams it and calls Remove.
type Snapshot struct {
	Path string
	Name string
}

func (s Snapshot) Remove() error {
	return os.Remove(s.Path)
}

// Snapshot writes a point-in-time copy of the database. VACUUM INTO is tried
// first; the raw file copy under a write lock is the fallback.
func (m *Manager) Snapshot(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp := m.now().Format(stampLayout)
	snap := Snapshot{
		Name: fmt.Sprintf("%s-%s.db", m.opts.Prefix, stamp),
		Path: filepath.Join(os.TempDir(), fmt.Sprintf("%s-%s-%s.db", m.opts.Prefix, stamp, uuid.NewString())),
	}
	if err := m.snapshotTo(ctx, snap.Path); err != nil {
		return Snapshot{}, err
	}
	m.log.Info("database snapshot written", zap.String("path", snap.Path))
	return snap, nil
}

func (m *Manager) snapshotTo(ctx context.Context, dest string) error {
	err := m.vacuumInto(ctx, dest)
	if err == nil {
		return nil
	}
	m.log.Warn("vacuum into failed, copying database file", zap.Error(err))
	_ = os.Remove(dest)
	return m.copySnapshot(ctx, dest)
}

func (m *Manager) vacuumInto(ctx context.Context, dest string) error {
	if _, err := m.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO `+quote(dest)); err != nil {
		return fmt.Errorf("vacuum into: %w", err)
	}
	return nil
}

// copySnapshot copies the database file while holding the write lock on a
// dedicated connection.
func (m *Manager) copySnapshot(ctx context.Context, dest string) error {
	conn, err := m.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	_, _ = conn.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`)
	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return fmt.Errorf("lock database: %w", err)
	}
	_, _ = conn.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`)

	if err := copyFile(m.opts.DatabasePath, dest); err != nil {
		_, _ = conn.ExecContext(ctx, `ROLLBACK`)
		return fmt.Errorf("copy database file: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
		return fmt.Errorf("release database lock: %w", err)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// quote renders s as an SQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
