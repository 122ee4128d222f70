// Package catalog stores brands, categories, suppliers and products, and
// imports or exports them as tables.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"stockroom/m/domain"
	"stockroom/m/internal/tabular"
)

// Schema describes how one simple entity maps onto its table.
type Schema[T any] struct {
	Label      string   // singular, capitalized: "Brand"
	Table      string
	Key        string   // unique column used to match import rows
	KeyAliases []string // import header names carrying the key
	Columns    []string // writable columns, bound by db tag
	Select     string   // read projection; must produce every db tag of T
	Header     []string // export header

	New      func() T
	Named    func(name string) T
	Validate func(*T) error
	Apply    func(tabular.Row, *T) error
	Record   func(T) []string
}

// Store implements CRUD, export and upsert import for a Schema.
type Store[T any] struct {
	db     *sqlx.DB
	schema Schema[T]
}

func NewStore[T any](db *sqlx.DB, schema Schema[T]) *Store[T] {
	return &Store[T]{db: db, schema: schema}
}

func (s *Store[T]) Label() string { return s.schema.Label }

func (s *Store[T]) New() T { return s.schema.New() }

func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	items := []T{}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY name COLLATE NOCASE, id`, s.schema.Select, s.schema.Table)
	if err := s.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list %s: %w", s.schema.Table, err)
	}
	return items, nil
}

func (s *Store[T]) Get(ctx context.Context, id int64) (T, error) {
	var item T
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, s.schema.Select, s.schema.Table)
	err := s.db.GetContext(ctx, &item, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return item, domain.NotFound(s.schema.Label)
	}
	if err != nil {
		return item, fmt.Errorf("get %s %d: %w", s.schema.Table, id, err)
	}
	return item, nil
}

func (s *Store[T]) Create(ctx context.Context, item *T) (int64, error) {
	if err := s.schema.Validate(item); err != nil {
		return 0, err
	}
	return s.insert(ctx, s.db, item)
}

func (s *Store[T]) Update(ctx context.Context, id int64, item *T) error {
	if err := s.schema.Validate(item); err != nil {
		return err
	}
	n, err := s.update(ctx, s.db, id, item)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound(s.schema.Label)
	}
	return nil
}

func (s *Store[T]) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.schema.Table), id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", s.schema.Table, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound(s.schema.Label)
	}
	return nil
}

// DeleteAll removes every row. Products keep their now dangling references.
func (s *Store[T]) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.schema.Table))
	if err != nil {
		return 0, fmt.Errorf("delete all %s: %w", s.schema.Table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store[T]) Export(ctx context.Context) (tabular.Table, error) {
	items, err := s.List(ctx)
	if err != nil {
		return tabular.Table{}, err
	}
	t := tabular.NewTable(s.schema.Header...)
	t.Numeric("id")
	for _, item := range items {
		t.Append(s.schema.Record(item)...)
	}
	return t, nil
}

// Import upserts rows by the schema key inside one transaction. A bad row is
// counted and skipped; only transaction failures abort.
func (s *Store[T]) Import(ctx context.Context, rows []tabular.Row) (ImportResult, error) {
	var result ImportResult
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for i, row := range rows {
			line := i + 2
			key := strings.TrimSpace(row.Get(s.schema.KeyAliases...))
			if key == "" {
				result.Fail(line, domain.Invalid("%s is required", s.schema.Key))
				continue
			}

			id, found, err := s.findID(ctx, tx, key)
			if err != nil {
				result.Fail(line, err)
				continue
			}

			item := s.schema.New()
			if found {
				if err := sqlx.GetContext(ctx, tx, &item, fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, s.schema.Select, s.schema.Table), id); err != nil {
					result.Fail(line, err)
					continue
				}
			}
			if err := s.schema.Apply(row, &item); err != nil {
				result.Fail(line, err)
				continue
			}
			if err := s.schema.Validate(&item); err != nil {
				result.Fail(line, err)
				continue
			}

			if found {
				if _, err := s.update(ctx, tx, id, &item); err != nil {
					result.Fail(line, err)
					continue
				}
				result.Updated++
				continue
			}
			if _, err := s.insert(ctx, tx, &item); err != nil {
				result.Fail(line, err)
				continue
			}
			result.Created++
		}
		return nil
	})
	return result, err
}

// FindOrCreate returns the id of the row whose key equals name, inserting a
// new row when none exists.
func (s *Store[T]) FindOrCreate(ctx context.Context, ex sqlx.ExtContext, name string) (int64, error) {
	name = strings.TrimSpace(name)
	id, found, err := s.findID(ctx, ex, name)
	if err != nil || found {
		return id, err
	}
	item := s.schema.Named(name)
	return s.insert(ctx, ex, &item)
}

func (s *Store[T]) findID(ctx context.Context, q sqlx.QueryerContext, key string) (int64, bool, error) {
	var id int64
	query := fmt.Sprintf(`SELECT id FROM %s WHERE %s = ? ORDER BY id LIMIT 1`, s.schema.Table, s.schema.Key)
	err := sqlx.GetContext(ctx, q, &id, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup %s %q: %w", s.schema.Table, key, err)
	}
	return id, true, nil
}

func (s *Store[T]) insert(ctx context.Context, ex sqlx.ExecerContext, item *T) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (:%s)`,
		s.schema.Table, strings.Join(s.schema.Columns, ", "), strings.Join(s.schema.Columns, ", :"))
	bound, args, err := sqlx.Named(query, item)
	if err != nil {
		return 0, err
	}
	res, err := ex.ExecContext(ctx, bound, args...)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", s.schema.Table, err)
	}
	return res.LastInsertId()
}

func (s *Store[T]) update(ctx context.Context, ex sqlx.ExecerContext, id int64, item *T) (int64, error) {
	sets := make([]string, len(s.schema.Columns))
	for i, c := range s.schema.Columns {
		sets[i] = c + " = :" + c
	}
	query := fmt.Sprintf(`UPDATE %s SET %s`, s.schema.Table, strings.Join(sets, ", "))
	bound, args, err := sqlx.Named(query, item)
	if err != nil {
		return 0, err
	}
	res, err := ex.ExecContext(ctx, bound+` WHERE id = ?`, append(args, id)...)
	if err != nil {
		return 0, fmt.Errorf("update %s %d: %w", s.schema.Table, id, err)
	}
	return res.RowsAffected()
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
