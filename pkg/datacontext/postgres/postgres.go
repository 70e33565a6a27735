// Package postgres stores datacontext collections as JSONB rows, one table per
// collection: (id text primary key, seq bigserial, doc jsonb). Filter
// conditions and plain set/unset updates run inside Postgres; array updates
// are applied to the locked row in a transaction.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/uksf/uksf-api/pkg/datacontext"
)

// DB is satisfied by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Backend struct {
	db     DB
	prefix string

	mu     sync.Mutex
	tables map[string]*Collection
}

func New(db DB, prefix string) *Backend {
	return &Backend{db: db, prefix: prefix, tables: make(map[string]*Collection)}
}

func (b *Backend) Collection(name string) datacontext.RawCollection {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.tables[name]
	if !ok {
		c = &Collection{db: b.db, name: name, table: pgx.Identifier{b.prefix + name}.Sanitize()}
		b.tables[name] = c
	}
	return c
}

// Migrate creates the tables for the given collections.
func (b *Backend) Migrate(ctx context.Context, names ...string) error {
	for _, name := range names {
		c := b.Collection(name).(*Collection)
		if err := c.ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}

type Collection struct {
	db    DB
	name  string
	table string

	once    sync.Once
	initErr error
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) ensure(ctx context.Context) error {
	c.once.Do(func() {
		_, err := c.db.Exec(ctx, createTableSQL(c.table))
		c.initErr = errors.Wrap(err, "create collection table")
	})
	return c.initErr
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id text PRIMARY KEY,
	seq bigserial NOT NULL,
	doc jsonb NOT NULL
)`, table)
}

func (c *Collection) All(ctx context.Context) ([][]byte, error) {
	return c.Match(ctx, nil)
}

func (c *Collection) Match(ctx context.Context, conds []datacontext.Condition) ([][]byte, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}
	where, args, err := buildWhere(conds, 1)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.Query(ctx, fmt.Sprintf("SELECT doc FROM %s WHERE %s ORDER BY seq", c.table, where), args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", c.name)
	}
	defer rows.Close()
	var out [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.Wrapf(err, "scan %s", c.name)
		}
		out = append(out, doc)
	}
	return out, errors.Wrap(rows.Err(), "iterate rows")
}

func (c *Collection) Get(ctx context.Context, id string) ([]byte, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}
	var doc []byte
	err := c.db.QueryRow(ctx, fmt.Sprintf("SELECT doc FROM %s WHERE id = $1", c.table), id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, datacontext.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s %s", c.name, id)
	}
	return doc, nil
}

func (c *Collection) Insert(ctx context.Context, id string, doc []byte) error {
	if err := c.ensure(ctx); err != nil {
		return err
	}
	_, err := c.db.Exec(ctx, fmt.Sprintf("INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)", c.table), id, string(doc))
	return errors.Wrapf(err, "insert %s", c.name)
}

func (c *Collection) Remove(ctx context.Context, ids ...string) (int, error) {
	if err := c.ensure(ctx); err != nil {
		return 0, err
	}
	tag, err := c.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", c.table), ids)
	if err != nil {
		return 0, errors.Wrapf(err, "delete %s", c.name)
	}
	return int(tag.RowsAffected()), nil
}

func (c *Collection) Put(ctx context.Context, id string, doc []byte) error {
	if err := c.ensure(ctx); err != nil {
		return err
	}
	tag, err := c.db.Exec(ctx, fmt.Sprintf("UPDATE %s SET doc = $2::jsonb WHERE id = $1", c.table), id, string(doc))
	if err != nil {
		return errors.Wrapf(err, "replace %s %s", c.name, id)
	}
	if tag.RowsAffected() == 0 {
		return datacontext.ErrNotFound
	}
	return nil
}

func (c *Collection) Modify(ctx context.Context, ids []string, update datacontext.Update) (int, error) {
	if err := c.ensure(ctx); err != nil {
		return 0, err
	}
	if expr, args, ok, err := buildUpdateExpr(update, 2); err != nil {
		return 0, err
	} else if ok {
		sql := fmt.Sprintf("UPDATE %s SET doc = %s WHERE id = ANY($1)", c.table, expr)
		tag, err := c.db.Exec(ctx, sql, append([]any{ids}, args...)...)
		if err != nil {
			return 0, errors.Wrapf(err, "update %s", c.name)
		}
		return int(tag.RowsAffected()), nil
	}
	return c.modifyInTx(ctx, ids, update)
}

// modifyInTx locks the rows, applies the update in process and writes back.
func (c *Collection) modifyInTx(ctx context.Context, ids []string, update datacontext.Update) (n int, err error) {
	tx, err := c.db.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	rows, err := tx.Query(ctx, fmt.Sprintf("SELECT id, doc FROM %s WHERE id = ANY($1) ORDER BY seq FOR UPDATE", c.table), ids)
	if err != nil {
		return 0, errors.Wrapf(err, "lock %s", c.name)
	}
	type row struct {
		id  string
		doc []byte
	}
	var locked []row
	for rows.Next() {
		var r row
		if err = rows.Scan(&r.id, &r.doc); err != nil {
			rows.Close()
			return 0, errors.Wrapf(err, "scan %s", c.name)
		}
		locked = append(locked, r)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return 0, errors.Wrap(err, "iterate rows")
	}

	for _, r := range locked {
		var doc []byte
		if doc, err = update.Apply(r.doc); err != nil {
			return 0, err
		}
		if _, err = tx.Exec(ctx, fmt.Sprintf("UPDATE %s SET doc = $2::jsonb WHERE id = $1", c.table), r.id, string(doc)); err != nil {
			return 0, errors.Wrapf(err, "update %s %s", c.name, r.id)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit")
	}
	return len(locked), nil
}

func jsonPath(path string) []string {
	return strings.Split(path, ".")
}

// buildWhere renders conditions as a boolean SQL expression over the doc
// column. Placeholders are numbered from start.
func buildWhere(conds []datacontext.Condition, start int) (string, []any, error) {
	if len(conds) == 0 {
		return "TRUE", nil, nil
	}
	parts := make([]string, 0, len(conds))
	args := make([]any, 0, len(conds)*2)
	n := start
	for _, cond := range conds {
		value, err := cond.JSON()
		if err != nil {
			return "", nil, errors.Wrapf(err, "encode condition %s", cond.Path)
		}
		target := fmt.Sprintf("(doc #> $%d::text[])", n)
		isNull := string(value) == "null"
		switch cond.Kind {
		case datacontext.CondEq:
			if isNull {
				parts = append(parts, fmt.Sprintf("(%s IS NULL OR %s = 'null'::jsonb)", target, target))
				args = append(args, jsonPath(cond.Path))
				n++
				continue
			}
			parts = append(parts, fmt.Sprintf("%s = $%d::jsonb", target, n+1))
		case datacontext.CondNe:
			if isNull {
				parts = append(parts, fmt.Sprintf("(%s IS NOT NULL AND %s <> 'null'::jsonb)", target, target))
				args = append(args, jsonPath(cond.Path))
				n++
				continue
			}
			parts = append(parts, fmt.Sprintf("%s IS DISTINCT FROM $%d::jsonb", target, n+1))
		case datacontext.CondContains:
			parts = append(parts, fmt.Sprintf("(jsonb_typeof(%s) = 'array' AND %s @> jsonb_build_array($%d::jsonb))", target, target, n+1))
		default:
			return "", nil, fmt.Errorf("postgres: unsupported condition %q", cond.Kind)
		}
		args = append(args, jsonPath(cond.Path), string(value))
		n += 2
	}
	return strings.Join(parts, " AND "), args, nil
}

// buildUpdateExpr renders an update made only of set and unset operations as
// one jsonb expression. ok is false when the update needs the row in process.
func buildUpdateExpr(update datacontext.Update, start int) (expr string, args []any, ok bool, err error) {
	expr = "doc"
	n := start
	for _, op := range update.Ops() {
		if op.Path == "id" {
			return "", nil, false, fmt.Errorf("postgres: id is immutable")
		}
		switch op.Kind {
		case datacontext.UpdSet:
			value, err := json.Marshal(op.Value)
			if err != nil {
				return "", nil, false, errors.Wrapf(err, "encode %s", op.Path)
			}
			expr = fmt.Sprintf("jsonb_set(%s, $%d::text[], $%d::jsonb, true)", expr, n, n+1)
			args = append(args, jsonPath(op.Path), string(value))
			n += 2
		case datacontext.UpdUnset:
			expr = fmt.Sprintf("(%s #- $%d::text[])", expr, n)
			args = append(args, jsonPath(op.Path))
			n++
		default:
			return "", nil, false, nil
		}
	}
	return expr, args, true, nil
}
