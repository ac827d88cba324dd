package storage

import (
	"context"
	"database/sql"

	apperrors "github.com/shoplane/embedded-app-server/internal/errors"
)

// Row is one result row as a column-name keyed map. BLOB/TEXT columns come
// back as string, integers as int64, the usual database/sql conversions
// otherwise.
type Row map[string]any

// Meta reports how much a statement touched, when the driver knows.
type Meta struct {
	RowsRead    int64
	RowsWritten int64
}

// Instance is one isolated durable store. All faults are caught here and
// returned as *Fault values; nothing panics past this boundary.
type Instance struct {
	name string
	db   *sql.DB
}

// NewInstance wraps an already-opened database. Namespaces use this
// internally; tests hand in their own *sql.DB.
func NewInstance(name string, db *sql.DB) *Instance {
	return &Instance{name: name, db: db}
}

func (i *Instance) Name() string {
	return i.name
}

func (i *Instance) Close() error {
	if i.db == nil {
		return apperrors.ErrInstanceClosed
	}
	err := i.db.Close()
	i.db = nil
	return err
}

// Run executes a statement with no row-returning expectation
// (DDL, INSERT, UPDATE, DELETE).
func (i *Instance) Run(ctx context.Context, query string, args ...any) (Meta, error) {
	if i.db == nil {
		return Meta{}, apperrors.ErrInstanceClosed
	}
	res, err := i.db.ExecContext(ctx, query, args...)
	if err != nil {
		return Meta{}, newFault("run", i.name, err)
	}
	meta := Meta{}
	if n, err := res.RowsAffected(); err == nil {
		meta.RowsWritten = n
	}
	return meta, nil
}

// First executes a query and returns only the first row, or nil if the
// result set is empty.
func (i *Instance) First(ctx context.Context, query string, args ...any) (Row, error) {
	if i.db == nil {
		return nil, apperrors.ErrInstanceClosed
	}
	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, newFault("first", i.name, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, newFault("first", i.name, err)
		}
		return nil, nil
	}
	row, err := scanRow(rows)
	if err != nil {
		return nil, newFault("first", i.name, err)
	}
	return row, nil
}

// All executes a query and returns every row.
func (i *Instance) All(ctx context.Context, query string, args ...any) ([]Row, Meta, error) {
	if i.db == nil {
		return nil, Meta{}, apperrors.ErrInstanceClosed
	}
	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Meta{}, newFault("all", i.name, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, Meta{}, newFault("all", i.name, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, Meta{}, newFault("all", i.name, err)
	}
	return out, Meta{RowsRead: int64(len(out))}, nil
}

func scanRow(rows *sql.Rows) (Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make(Row, len(cols))
	for i, col := range cols {
		if b, ok := vals[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = vals[i]
	}
	return row, nil
}
