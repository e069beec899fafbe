package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX — общее подмножество pgxpool.Pool и pgx.Tx.
// Репозитории работают через него и не знают, в транзакции они или нет.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore — Store поверх PostgreSQL.
type PgStore struct {
	pool *pgxpool.Pool

	// lockConn держит advisory lock: он живёт в сессии, а не в пуле,
	// поэтому взять и снять его нужно на одном соединении.
	mu       sync.Mutex
	lockConn *pgxpool.Conn
}

// NewPgStore создаёт новый PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Repos возвращает репозитории, работающие напрямую через пул.
func (s *PgStore) Repos() Repos {
	return newRepos(s.pool)
}

// InTx выполняет fn в транзакции (READ COMMITTED + блокировки строк через FOR UPDATE).
func (s *PgStore) InTx(ctx context.Context, fn func(r Repos) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(newRepos(tx))
	})
}

// OldestOpenTx возвращает xact_start самой старой открытой транзакции
// других соединений сервиса. Запись ленты изменений получает отметку
// внутри транзакции, поэтому она не раньше этого момента.
func (s *PgStore) OldestOpenTx(ctx context.Context) (*time.Time, error) {
	var oldest *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT min(xact_start) FROM pg_stat_activity
		WHERE datname = current_database()
		  AND usename = current_user
		  AND pid <> pg_backend_pid()
		  AND xact_start IS NOT NULL
	`).Scan(&oldest)
	if err != nil {
		return nil, fmt.Errorf("oldest open tx: %w", err)
	}
	return oldest, nil
}

// TryAdvisoryLock пытается взять session-level advisory lock.
// Используется для выбора лидера среди реплик sweeper'а.
func (s *PgStore) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lockConn == nil {
		conn, err := s.pool.Acquire(ctx)
		if err != nil {
			return false, fmt.Errorf("acquire lock conn: %w", err)
		}
		s.lockConn = conn
	}

	var ok bool
	if err := s.lockConn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
		// Соединение могло умереть вместе с блокировкой
		s.lockConn.Release()
		s.lockConn = nil
		return false, fmt.Errorf("advisory lock: %w", err)
	}
	return ok, nil
}

// AdvisoryUnlock снимает advisory lock и возвращает соединение в пул.
func (s *PgStore) AdvisoryUnlock(ctx context.Context, key int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lockConn == nil {
		return nil
	}
	_, err := s.lockConn.Exec(ctx, "SELECT pg_advisory_unlock($1)", key)
	s.lockConn.Release()
	s.lockConn = nil
	return err
}

func newRepos(db DBTX) Repos {
	return Repos{
		Runs:       &RunRepo{db: db},
		Routes:     &RouteRepo{db: db},
		Requests:   &RequestRepo{db: db},
		Team:       &TeamRepo{db: db},
		Deliveries: &DeliveryRepo{db: db},
		Sightings:  &SightingRepo{db: db},
	}
}

// --- Helpers ---

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// derefString возвращает "" для NULL.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}

// notFound переводит pgx.ErrNoRows в ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("scan %s: %w", what, err)
}

// isUniqueViolation проверяет код 23505 (unique_violation).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// collect сканирует все строки через scan.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}
