package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	dErrors "swiftremit/pkg/domain-errors"
	"swiftremit/pkg/platform/sentinel"
	sqltx "swiftremit/pkg/platform/tx"
)

// Postgres is a Store over the ledger_kv table. Every namespace is an
// independent ledger instance; units of work on one namespace are
// serialized with a transaction-scoped advisory lock.
type Postgres struct {
	db        *sql.DB
	namespace string
	timeout   time.Duration
}

// PostgresOption configures a Postgres store.
type PostgresOption func(*Postgres)

// WithTxTimeout bounds units of work whose context carries no deadline.
func WithTxTimeout(d time.Duration) PostgresOption {
	return func(p *Postgres) { p.timeout = d }
}

func NewPostgres(db *sql.DB, namespace string, opts ...PostgresOption) *Postgres {
	p := &Postgres{db: db, namespace: namespace}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (s *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context, kv KV) error) error {
	if kv, ok := TxFrom(ctx); ok {
		return fn(ctx, kv)
	}

	ctx, cancel, err := prepare(ctx, s.timeout)
	defer cancel()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, s.namespace); err != nil {
		return classify(err, "acquire ledger lock")
	}

	ctx = sqltx.WithTx(ctx, tx)
	kv := &postgresKV{db: s.db, namespace: s.namespace}
	if err := fn(WithTx(ctx, kv), kv); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(err, "commit transaction")
	}
	return nil
}

func (s *Postgres) View(ctx context.Context, fn func(ctx context.Context, r Reader) error) error {
	if kv, ok := TxFrom(ctx); ok {
		return fn(ctx, kv)
	}
	return fn(ctx, &postgresKV{db: s.db, namespace: s.namespace})
}

// postgresKV runs on the transaction carried by ctx, or on the pool for
// read-only views.
type postgresKV struct {
	db        *sql.DB
	namespace string
}

func (k *postgresKV) Get(ctx context.Context, key Key) ([]byte, error) {
	var value []byte
	err := sqltx.ExecutorFrom(ctx, k.db).QueryRowContext(ctx,
		`SELECT value FROM ledger_kv WHERE namespace = $1 AND key = $2`,
		k.namespace, string(key),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, classify(err, "get "+string(key))
	}
	return value, nil
}

func (k *postgresKV) Has(ctx context.Context, key Key) (bool, error) {
	var exists bool
	err := sqltx.ExecutorFrom(ctx, k.db).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM ledger_kv WHERE namespace = $1 AND key = $2)`,
		k.namespace, string(key),
	).Scan(&exists)
	if err != nil {
		return false, classify(err, "has "+string(key))
	}
	return exists, nil
}

func (k *postgresKV) GetMany(ctx context.Context, keys []Key) (map[Key][]byte, error) {
	out := make(map[Key][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = string(key)
	}

	rows, err := sqltx.ExecutorFrom(ctx, k.db).QueryContext(ctx,
		`SELECT key, value FROM ledger_kv WHERE namespace = $1 AND key = ANY($2)`,
		k.namespace, pq.Array(names),
	)
	if err != nil {
		return nil, classify(err, "get many")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, classify(err, "scan row")
		}
		out[Key(key)] = value
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate rows")
	}
	return out, nil
}

func (k *postgresKV) Set(ctx context.Context, key Key, value []byte) error {
	_, err := sqltx.ExecutorFrom(ctx, k.db).ExecContext(ctx, `
		INSERT INTO ledger_kv (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, k.namespace, string(key), value)
	if err != nil {
		return classify(err, "set "+string(key))
	}
	return nil
}

func (k *postgresKV) Insert(ctx context.Context, key Key, value []byte) error {
	res, err := sqltx.ExecutorFrom(ctx, k.db).ExecContext(ctx, `
		INSERT INTO ledger_kv (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key) DO NOTHING
	`, k.namespace, string(key), value)
	if err != nil {
		return classify(err, "insert "+string(key))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, "insert "+string(key))
	}
	if n == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

// PostgreSQL error classes the store distinguishes.
const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
	pqQueryCanceled        = "57014"
)

// classify maps driver errors onto sentinels so the service can translate
// them without knowing which backend is in use.
func classify(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, op+": context cancelled")
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w", op, sentinel.ErrAlreadyUsed)
		case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
			return fmt.Errorf("%s: %w: %s", op, sentinel.ErrConflict, pqErr.Message)
		case pqQueryCanceled:
			return dErrors.Wrap(err, dErrors.CodeTimeout, op+": statement cancelled")
		}
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w", op, sentinel.ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
