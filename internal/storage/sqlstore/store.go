// Package sqlstore is a table store over database/sql, speaking either the
// MySQL or the SQLite dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"karoo_lodge/internal/adapters/observability"
	"karoo_lodge/internal/domain"
)

const backend = "sql"

type Store struct {
	db  *sql.DB
	d   Dialect
	now func() time.Time
}

func New(db *sql.DB, d Dialect) *Store { return &Store{db: db, d: d, now: time.Now} }

// Open connects and pings. For mysql the DSN should carry parseTime=true.
func Open(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(string(d), dsn)
	if err != nil {
		return nil, err
	}
	if d == SQLite {
		// one connection: a single writer, and ":memory:" stays one database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d, err)
	}
	return New(db, d), nil
}

func (s *Store) DB() *sql.DB      { return s.db }
func (s *Store) Dialect() Dialect { return s.d }
func (s *Store) Close() error     { return s.db.Close() }

func (s *Store) fail(op, table string, err error) error {
	if err == nil {
		return nil
	}
	return &domain.StoreError{Backend: backend, Op: op, Table: table, Err: err}
}

func (s *Store) Select(ctx context.Context, table string, q domain.Query) (out []domain.Row, err error) {
	start := time.Now()
	defer func() { observability.ObserveGateway(backend, "select", table, start, err) }()

	t, err := lookup(table)
	if err != nil {
		return nil, s.fail("select", table, err)
	}
	cols, err := t.pick(q.Columns)
	if err != nil {
		return nil, s.fail("select", table, err)
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = s.d.quote(c.name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(names, ", "), s.d.quote(t.name))
	where, args, err := s.where(t, q.Filters)
	if err != nil {
		return nil, s.fail("select", table, err)
	}
	b.WriteString(where)
	order, err := s.orderBy(t, q.Orders)
	if err != nil {
		return nil, s.fail("select", table, err)
	}
	b.WriteString(order)
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}

	rs, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, s.fail("select", table, err)
	}
	defer rs.Close()

	for rs.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, s.fail("select", table, err)
		}
		row := make(domain.Row, len(cols))
		for i, c := range cols {
			v, err := decode(c, vals[i])
			if err != nil {
				return nil, s.fail("select", table, err)
			}
			row[c.name] = v
		}
		out = append(out, row)
	}
	if err := rs.Err(); err != nil {
		return nil, s.fail("select", table, err)
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, table string, rows ...domain.Row) (err error) {
	start := time.Now()
	defer func() { observability.ObserveGateway(backend, "insert", table, start, err) }()
	return s.fail("insert", table, s.write(ctx, table, rows, false))
}

func (s *Store) Upsert(ctx context.Context, table string, rows []domain.Row) (err error) {
	start := time.Now()
	defer func() { observability.ObserveGateway(backend, "upsert", table, start, err) }()
	return s.fail("upsert", table, s.write(ctx, table, rows, true))
}

// write inserts rows grouped by column set, one multi-row statement per
// group, all inside one transaction.
func (s *Store) write(ctx context.Context, table string, rows []domain.Row, upsert bool) error {
	if len(rows) == 0 {
		return nil
	}
	t, err := lookup(table)
	if err != nil {
		return err
	}

	type group struct {
		cols []string
		auto bool // created_at filled in here
		rows []domain.Row
	}
	var groups []*group
	byKey := map[string]*group{}
	now := s.now().UTC()
	for i, r := range rows {
		if upsert {
			if id, _ := r["id"].(string); id == "" {
				return fmt.Errorf("%w: upsert row %d has no id", domain.ErrInvalid, i)
			}
		}
		row := make(domain.Row, len(r)+1)
		for k, v := range r {
			if !t.has(k) {
				return fmt.Errorf("%w: unknown column %q on %s", domain.ErrInvalid, k, t.name)
			}
			row[k] = v
		}
		_, hasCreated := r["created_at"]
		if !hasCreated {
			// preserve batch order under created_at ordering
			row["created_at"] = now.Add(time.Duration(i) * time.Microsecond)
		}
		cols := sortedKeys(row)
		key := strings.Join(cols, ",")
		g, ok := byKey[key]
		if !ok {
			g = &group{cols: cols, auto: !hasCreated}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, row)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, g := range groups {
		quoted := make([]string, len(g.cols))
		for i, c := range g.cols {
			quoted[i] = s.d.quote(c)
		}
		ph := "(" + strings.TrimSuffix(strings.Repeat("?,", len(g.cols)), ",") + ")"
		values := make([]string, 0, len(g.rows))
		args := make([]any, 0, len(g.rows)*len(g.cols))
		for _, r := range g.rows {
			values = append(values, ph)
			for _, c := range g.cols {
				v, err := s.d.encode(column{name: c, kind: t.kind[c]}, r[c])
				if err != nil {
					return fmt.Errorf("%w: %v", domain.ErrInvalid, err)
				}
				args = append(args, v)
			}
		}
		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.d.quote(t.name), strings.Join(quoted, ", "), strings.Join(values, ", "))
		if upsert {
			var update []string
			for _, c := range g.cols {
				if c == "id" || (c == "created_at" && g.auto) {
					continue
				}
				update = append(update, c)
			}
			stmt += s.d.upsertSuffix(update)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Update(ctx context.Context, table string, values domain.Row, filters ...domain.Filter) (err error) {
	start := time.Now()
	defer func() { observability.ObserveGateway(backend, "update", table, start, err) }()

	t, err := lookup(table)
	if err != nil {
		return s.fail("update", table, err)
	}
	if len(filters) == 0 {
		return s.fail("update", table, fmt.Errorf("%w: update without filters", domain.ErrInvalid))
	}
	var sets []string
	var args []any
	for _, k := range sortedKeys(values) {
		if k == "id" {
			continue
		}
		kind, ok := t.kind[k]
		if !ok {
			return s.fail("update", table, fmt.Errorf("%w: unknown column %q on %s", domain.ErrInvalid, k, t.name))
		}
		v, err := s.d.encode(column{name: k, kind: kind}, values[k])
		if err != nil {
			return s.fail("update", table, fmt.Errorf("%w: %v", domain.ErrInvalid, err))
		}
		sets = append(sets, s.d.quote(k)+" = ?")
		args = append(args, v)
	}
	if len(sets) == 0 {
		return nil
	}
	where, wargs, err := s.where(t, filters)
	if err != nil {
		return s.fail("update", table, err)
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s%s", s.d.quote(t.name), strings.Join(sets, ", "), where)
	_, err = s.db.ExecContext(ctx, stmt, append(args, wargs...)...)
	return s.fail("update", table, err)
}

func (s *Store) Delete(ctx context.Context, table string, filters ...domain.Filter) (err error) {
	start := time.Now()
	defer func() { observability.ObserveGateway(backend, "delete", table, start, err) }()

	t, err := lookup(table)
	if err != nil {
		return s.fail("delete", table, err)
	}
	if len(filters) == 0 {
		return s.fail("delete", table, fmt.Errorf("%w: delete without filters", domain.ErrInvalid))
	}
	where, args, err := s.where(t, filters)
	if err != nil {
		return s.fail("delete", table, err)
	}
	_, err = s.db.ExecContext(ctx, "DELETE FROM "+s.d.quote(t.name)+where, args...)
	return s.fail("delete", table, err)
}

func (s *Store) where(t *table, fs []domain.Filter) (string, []any, error) {
	if len(fs) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(fs))
	var args []any
	for _, f := range fs {
		kind, ok := t.kind[f.Column]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown column %q on %s", domain.ErrInvalid, f.Column, t.name)
		}
		c := column{name: f.Column, kind: kind}
		switch f.Op {
		case domain.OpEq:
			v, err := s.d.encode(c, f.Value)
			if err != nil {
				return "", nil, fmt.Errorf("%w: %v", domain.ErrInvalid, err)
			}
			if v == nil {
				parts = append(parts, s.d.quote(c.name)+" IS NULL")
				continue
			}
			parts = append(parts, s.d.quote(c.name)+" = ?")
			args = append(args, v)
		case domain.OpIn:
			vs, ok := f.Value.([]string)
			if !ok {
				return "", nil, fmt.Errorf("%w: in filter on %s needs []string", domain.ErrInvalid, c.name)
			}
			if len(vs) == 0 {
				parts = append(parts, "1 = 0")
				continue
			}
			parts = append(parts, s.d.quote(c.name)+" IN ("+strings.TrimSuffix(strings.Repeat("?,", len(vs)), ",")+")")
			for _, v := range vs {
				ev, err := s.d.encode(c, v)
				if err != nil {
					return "", nil, fmt.Errorf("%w: %v", domain.ErrInvalid, err)
				}
				args = append(args, ev)
			}
		default:
			return "", nil, fmt.Errorf("%w: unsupported filter op %q", domain.ErrInvalid, f.Op)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

// orderBy emulates NULLS LAST / NULLS FIRST portably with an IS NULL key.
func (s *Store) orderBy(t *table, orders []domain.Order) (string, error) {
	if len(orders) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(orders)*2)
	for _, o := range orders {
		if !t.has(o.Column) {
			return "", fmt.Errorf("%w: unknown column %q on %s", domain.ErrInvalid, o.Column, t.name)
		}
		col := s.d.quote(o.Column)
		if o.NullsFirst {
			parts = append(parts, "("+col+" IS NULL) DESC")
		} else {
			parts = append(parts, "("+col+" IS NULL)")
		}
		if o.Desc {
			parts = append(parts, col+" DESC")
		} else {
			parts = append(parts, col+" ASC")
		}
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// Migrate creates every table that does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, name := range tableOrder {
		if _, err := s.db.ExecContext(ctx, s.d.createTable(tables[name])); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
	}
	return nil
}
