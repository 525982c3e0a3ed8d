package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	"invest/internal/retry"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var ErrUnavailable = errors.New("database unavailable")

type TxRunner interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
}

type SQLXTxRunner struct {
	db     *sqlx.DB
	policy retry.Policy
}

func NewTxRunner(db *sqlx.DB, policy retry.Policy) SQLXTxRunner {
	return SQLXTxRunner{db: db, policy: policy}
}

func (r SQLXTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return WithTx(ctx, r.db, r.policy, fn)
}

func Connect(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// WithTx runs fn inside a serializable transaction. Serialization failures
// and deadlocks roll back and re-run fn under the retry policy, so fn must
// not have side effects outside tx.
func WithTx(ctx context.Context, db *sqlx.DB, policy retry.Policy, fn func(*sqlx.Tx) error) error {
	return retry.Do(ctx, policy, IsRetryable, func() error {
		tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return classify(err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return classify(err)
		}
		return nil
	})
}

func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

// IsUnavailable reports connection-level failures, as opposed to errors
// produced by a statement the server accepted.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return strings.HasPrefix(string(pqErr.Code), "08") || pqErr.Code == "57P03"
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func classify(err error) error {
	if IsUnavailable(err) && !errors.Is(err, ErrUnavailable) {
		return errors.Join(ErrUnavailable, err)
	}
	return err
}

func Ping(ctx context.Context, db *sqlx.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return classify(err)
	}
	return nil
}
