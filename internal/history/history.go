package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"portfolio-alerts/internal/config"
)

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("history: pool not configured")

// AlertRecord captures one fired alert for auditing.
type AlertRecord struct {
	ID        int64
	Category  string
	SignalKey string
	Severity  float64
	Message   string
	FiredAt   time.Time
	CreatedAt time.Time
}

// AlertStore persists and queries fired alerts.
type AlertStore interface {
	InsertAlert(ctx context.Context, rec AlertRecord) (int64, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
}

// AdvisoryLocker guards daemon-mode runs across hosts that share a database.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error)
}

const (
	insertAlertSQL = `INSERT INTO fired_alerts (
        category,
        signal_key,
        severity,
        message,
        fired_at
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    RETURNING id;`

	listRecentAlertsSQL = `SELECT
        id,
        category,
        signal_key,
        severity,
        message,
        fired_at,
        created_at
    FROM fired_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM fired_alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

// Store is the pgx-backed audit trail.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps a connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InsertAlert persists one fired alert and returns its id.
func (s *Store) InsertAlert(ctx context.Context, rec AlertRecord) (int64, error) {
	if s.pool == nil {
		return 0, ErrNotConfigured
	}

	firedAt := rec.FiredAt
	if firedAt.IsZero() {
		firedAt = time.Now().UTC()
	}

	var id int64
	err := s.pool.QueryRow(ctx, insertAlertSQL,
		rec.Category, rec.SignalKey, rec.Severity, rec.Message, firedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert alert: %w", err)
	}
	return id, nil
}

// ListRecentAlerts returns the most recently recorded alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	if s.pool == nil {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, listRecentAlertsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []AlertRecord
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(&rec.ID, &rec.Category, &rec.SignalKey, &rec.Severity, &rec.Message, &rec.FiredAt, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteAlertsBefore prunes audit rows older than cutoff.
func (s *Store) DeleteAlertsBefore(ctx context.Context, cutoff time.Time) error {
	if s.pool == nil {
		return ErrNotConfigured
	}
	if _, err := s.pool.Exec(ctx, deleteAlertsBeforeSQL, cutoff); err != nil {
		return fmt.Errorf("delete alerts: %w", err)
	}
	return nil
}

// TryAdvisoryLock attempts a session advisory lock; the returned func
// releases it.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	if s.pool == nil {
		return nil, false, ErrNotConfigured
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		_, _ = conn.Exec(context.Background(), advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

var (
	_ AlertStore     = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
