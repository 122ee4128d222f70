package backup

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stockroom/m/domain"
	"stockroom/m/internal/migrations"
)

const (
	MethodImport  = "import"
	MethodReplace = "replace"
	MethodStaged  = "staged"

	attachedSchema = "restore_src"
)

var sqliteHeader = []byte("SQLite format 3\x00")

type RestoreResult struct {
	Method          string           `json:"method"`
	RestartRequired bool             `json:"restart_required"`
	StagedPath      string           `json:"staged_path"`
	SafetyBackup    string           `json:"safety_backup,omitempty"`
	Message         string           `json:"message"`
	Tables          map[string]int64 `json:"tables,omitempty"`
}

// Restore replaces the live data with the uploaded database. Rows are copied
// into the open database when possible; otherwise the uploaded file is moved
// over the database file, or left staged for the operator. Only staging
// failures are returned as errors.
func (m *Manager) Restore(ctx context.Context, upload io.Reader) (RestoreResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged, err := m.stage(upload)
	if err != nil {
		return RestoreResult{}, err
	}
	result := RestoreResult{StagedPath: staged}

	safety := filepath.Join(m.opts.Dir, fmt.Sprintf("pre-restore-%s.db", m.now().Format(stampLayout)))
	if err := m.snapshotTo(ctx, safety); err != nil {
		m.log.Warn("pre-restore snapshot failed", zap.Error(err))
	} else {
		result.SafetyBackup = safety
	}

	tables, err := m.importFrom(ctx, staged)
	if err == nil {
		result.Method = MethodImport
		result.Tables = tables
		result.Message = "Database restored successfully"
		m.log.Info("database restored", zap.String("staged_path", staged), zap.Any("tables", tables))
		return result, nil
	}
	m.log.Warn("restore import failed, replacing database file", zap.Error(err))

	if err = m.replace(ctx, staged); err == nil {
		result.Method = MethodReplace
		result.RestartRequired = true
		result.StagedPath = m.opts.DatabasePath
		result.Message = "Database file replaced; restart the service before making further changes"
		return result, nil
	}
	m.log.Error("restore replace failed", zap.String("staged_path", staged), zap.Error(err))

	result.Method = MethodStaged
	result.RestartRequired = true
	result.Message = fmt.Sprintf("Restore could not be applied. Stop the service and copy %s over %s manually",
		staged, m.opts.DatabasePath)
	return result, nil
}

// stage validates the upload and writes it to the backup directory, or to the
// OS temp directory when that is not writable.
func (m *Manager) stage(upload io.Reader) (string, error) {
	br := bufio.NewReader(upload)
	head, err := br.Peek(len(sqliteHeader))
	if len(head) == 0 {
		return "", domain.ErrEmptyUpload
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if !bytes.Equal(head, sqliteHeader) {
		return "", domain.ErrNotDatabase
	}

	name := fmt.Sprintf("restore-%s-%s.db", m.now().Format(stampLayout), uuid.NewString())
	var errs []error
	for _, dir := range []string{m.opts.Dir, os.TempDir()} {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, name)
		if err := writeFile(path, br); err != nil {
			errs = append(errs, err)
			continue
		}
		return path, nil
	}
	return "", fmt.Errorf("stage upload: %w", errors.Join(errs...))
}

func writeFile(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// importFrom copies every known table out of the staged file in a single
// transaction on a dedicated connection. Only columns present on both sides
// are copied, so backups taken before a column was added still load.
func (m *Manager) importFrom(ctx context.Context, staged string) (map[string]int64, error) {
	conn, err := m.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	var foreignKeys int
	if err := conn.GetContext(ctx, &foreignKeys, `PRAGMA foreign_keys`); err != nil {
		return nil, fmt.Errorf("read foreign_keys: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		return nil, err
	}
	if foreignKeys == 1 {
		defer conn.ExecContext(context.Background(), `PRAGMA foreign_keys = ON`)
	}
	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE `+quote(staged)+` AS `+attachedSchema); err != nil {
		return nil, fmt.Errorf("attach upload: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), `DETACH DATABASE `+attachedSchema); err != nil {
			m.log.Warn("detach upload", zap.Error(err))
		}
	}()

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin restore: %w", err)
	}
	defer tx.Rollback()

	for i := len(migrations.Tables) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, `DELETE FROM main.`+migrations.Tables[i]); err != nil {
			return nil, fmt.Errorf("clear %s: %w", migrations.Tables[i], err)
		}
	}

	counts := make(map[string]int64, len(migrations.Tables))
	for _, table := range migrations.Tables {
		src, err := migrations.Columns(ctx, tx, attachedSchema, table)
		if err != nil {
			return nil, err
		}
		live, err := migrations.Columns(ctx, tx, "main", table)
		if err != nil {
			return nil, err
		}
		cols := intersect(live, src)
		if len(cols) == 0 {
			counts[table] = 0
			continue
		}

		list := strings.Join(cols, ", ")
		res, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO main.%s (%s) SELECT %s FROM %s.%s`,
			table, list, list, attachedSchema, table))
		if err != nil {
			return nil, fmt.Errorf("copy %s: %w", table, err)
		}
		counts[table], _ = res.RowsAffected()
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit restore: %w", err)
	}
	return counts, nil
}

// intersect keeps the live columns that also exist in src, quoted, in live
// order.
func intersect(live, src []string) []string {
	present := make(map[string]bool, len(src))
	for _, c := range src {
		present[strings.ToLower(c)] = true
	}
	var cols []string
	for _, c := range live {
		if present[strings.ToLower(c)] {
			cols = append(cols, quoteIdent(c))
		}
	}
	return cols
}

// replace moves the staged file over the live database file. The live
// connection leaves WAL mode first, so no -wal file holding frames of the old
// database is left beside the new one. The running process keeps the old file
// open until restarted.
func (m *Manager) replace(ctx context.Context, staged string) error {
	var mode string
	if err := m.db.GetContext(ctx, &mode, `PRAGMA journal_mode=DELETE`); err != nil {
		return fmt.Errorf("leave wal mode: %w", err)
	}
	if !strings.EqualFold(mode, "delete") {
		return fmt.Errorf("leave wal mode: journal mode is still %s", mode)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(m.opts.DatabasePath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s file: %w", suffix, err)
		}
	}
	return os.Rename(staged, m.opts.DatabasePath)
}
