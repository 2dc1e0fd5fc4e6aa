package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	"oficinapro/internal/domainerr"
	"oficinapro/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// StoreOptions holds the fault-handling shared by every repository:
// bounded retry of transient faults behind a circuit breaker.
type StoreOptions struct {
	Retry   infra.RetryPolicy
	Breaker *infra.CircuitBreaker
}

// DefaultStoreOptions returns the policy used when nothing is configured.
func DefaultStoreOptions() StoreOptions {
	return NewStoreOptions(infra.DefaultRetryPolicy(), infra.DefaultCBConfig())
}

// NewStoreOptions builds options whose breaker only counts transient faults.
func NewStoreOptions(retry infra.RetryPolicy, cb infra.CircuitBreakerConfig) StoreOptions {
	cb.IsFailure = isTransientKind
	return StoreOptions{Retry: retry, Breaker: infra.NewCircuitBreaker(cb)}
}

// runner executes storage operations. Outside a transaction an operation is
// retried on transient faults; inside one it runs once and the enclosing
// Transaction call retries the whole unit.
type runner struct {
	opts StoreOptions
	inTx bool
}

func (r runner) run(ctx context.Context, op func(ctx context.Context) error) error {
	if r.inTx {
		return translate(op(ctx))
	}
	err := infra.Retry(ctx, r.opts.Retry, isRetryable, func(ctx context.Context) error {
		if r.opts.Breaker == nil {
			return translate(op(ctx))
		}
		return r.opts.Breaker.Execute(func() error { return translate(op(ctx)) })
	})
	if errors.Is(err, infra.ErrCircuitOpen) {
		return domainerr.Wrap(domainerr.KindFalhaTransitoria, "armazenamento temporariamente indisponível", err)
	}
	return err
}

func isTransientKind(err error) bool {
	return domainerr.IsKind(err, domainerr.KindFalhaTransitoria)
}

func isRetryable(err error) bool {
	return isTransientKind(err) && !errors.Is(err, infra.ErrCircuitOpen)
}

// translate maps driver errors onto domain kinds. Errors that already carry
// a kind pass through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var de *domainerr.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainerr.Wrap(domainerr.KindNaoEncontrado, "registro não encontrado", err)
	case isUniqueViolation(err):
		return domainerr.Wrap(domainerr.KindViolacaoRestricao, "registro duplicado", err)
	case isCheckViolation(err):
		return domainerr.Wrap(domainerr.KindEntradaInvalida, "valor fora do intervalo permitido", err)
	case isTransient(err):
		return domainerr.Wrap(domainerr.KindFalhaTransitoria, "armazenamento temporariamente indisponível", err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

// isCheckViolation covers CHECK constraints and numeric overflow of the
// decimal(12,2) columns.
func isCheckViolation(err error) bool {
	if errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514" || pgErr.Code == "22003"
	}
	return strings.Contains(err.Error(), "CHECK constraint failed")
}

// transientSQLStates are PostgreSQL error codes worth retrying.
var transientSQLStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"53300": true, // too_many_connections
	"57P01": true, // admin_shutdown
	"57P02": true, // crash_shutdown
	"57P03": true, // cannot_connect_now
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") || transientSQLStates[pgErr.Code]
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

func empresaScope(empresaID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("empresa_id = ?", empresaID)
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
