package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xxxsen/votegate/internal/pkg/dbutil"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// RunInTx runs fn inside a transaction. When q is already a transaction fn joins it.
func RunInTx(ctx context.Context, q DBTX, fn func(tx DBTX) error) (err error) {
	b, ok := q.(txBeginner)
	if !ok {
		return fn(q)
	}
	tx, err := b.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// conn is embedded by every repository: the handle plus its placeholder style.
type conn struct {
	db       DBTX
	bindType int
}

func newConn(db DBTX, driver string) conn {
	return conn{db: db, bindType: dbutil.BindType(driver)}
}

func (c conn) finalize(query string, args []interface{}) (string, []interface{}) {
	return dbutil.Finalize(c.bindType, query, args)
}

func (c conn) isPostgres() bool {
	return c.bindType == dbutil.BindType("postgres")
}

func (c conn) count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	query, args = c.finalize(query, args)
	var total int64
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
