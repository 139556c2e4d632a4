// Package store provides the Data Access Layer (Repository) for tenant metadata.
// It handles all direct interactions with the PostgreSQL database using the pgx driver.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaeljc/pollconf/internal/validation"
)

// ErrTenantNotFound is returned when a tenant has no metadata row.
var ErrTenantNotFound = errors.New("tenant metadata not found")

// Compile-time check to verify that PostgresStore implements TenantMetadataRepository.
var _ TenantMetadataRepository = (*PostgresStore)(nil)

// TenantMetadata mirrors the 'tenant_metadata' table.
// A nil poll field means the tenant has no override for that interval.
type TenantMetadata struct {
	Tenant             string    `db:"tenant"`
	PollingTime        *string   `db:"polling_time"`
	PollingOverdueTime *string   `db:"polling_overdue_time"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// TenantMetadataRepository defines the persistence operations for tenant overrides.
type TenantMetadataRepository interface {
	// GetTenantMetadata returns the tenant's row or ErrTenantNotFound.
	GetTenantMetadata(ctx context.Context, tenant string) (*TenantMetadata, error)

	// SetPollingTime stores (or clears, when value is nil) the tenant's polling_time.
	// Only that column is written, so concurrent updates of the other field are preserved.
	SetPollingTime(ctx context.Context, tenant string, value *string) error

	// SetPollingOverdueTime is SetPollingTime for polling_overdue_time.
	SetPollingOverdueTime(ctx context.Context, tenant string, value *string) error

	// SetTenantOverrides writes both columns in one statement. A column is only
	// written when its set flag is true; a true flag with a nil value clears it.
	SetTenantOverrides(ctx context.Context, tenant string, poll, overdue *string, setPoll, setOverdue bool) error

	// DeleteTenantMetadata removes the row. Deleting a missing tenant is not an error.
	DeleteTenantMetadata(ctx context.Context, tenant string) error
}

// PostgresStore is the implementation of TenantMetadataRepository backed by PostgreSQL.
type PostgresStore struct {
	db           *pgxpool.Pool
	queryTimeout time.Duration
}

// NewPostgresStore creates a new repository instance with the given connection pool.
// Every query is bounded by queryTimeout; zero leaves the caller's deadline untouched.
func NewPostgresStore(db *pgxpool.Pool, queryTimeout time.Duration) *PostgresStore {
	validation.AssertNotNil(db, "database pool")
	return &PostgresStore{db: db, queryTimeout: queryTimeout}
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// GetTenantMetadata reads the override row of a tenant.
func (s *PostgresStore) GetTenantMetadata(ctx context.Context, tenant string) (*TenantMetadata, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT tenant, polling_time, polling_overdue_time, created_at, updated_at
		FROM tenant_metadata
		WHERE tenant = $1
	`

	var m TenantMetadata
	err := s.db.QueryRow(ctx, query, tenant).Scan(
		&m.Tenant,
		&m.PollingTime,
		&m.PollingOverdueTime,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant metadata: %w", err)
	}

	return &m, nil
}

// SetPollingTime upserts the tenant's polling_time column.
func (s *PostgresStore) SetPollingTime(ctx context.Context, tenant string, value *string) error {
	query := `
		INSERT INTO tenant_metadata (tenant, polling_time)
		VALUES ($1, $2)
		ON CONFLICT (tenant) DO UPDATE SET polling_time = EXCLUDED.polling_time
	`
	if err := s.exec(ctx, query, tenant, value); err != nil {
		return fmt.Errorf("failed to set polling_time: %w", err)
	}
	return nil
}

// SetPollingOverdueTime upserts the tenant's polling_overdue_time column.
func (s *PostgresStore) SetPollingOverdueTime(ctx context.Context, tenant string, value *string) error {
	query := `
		INSERT INTO tenant_metadata (tenant, polling_overdue_time)
		VALUES ($1, $2)
		ON CONFLICT (tenant) DO UPDATE SET polling_overdue_time = EXCLUDED.polling_overdue_time
	`
	if err := s.exec(ctx, query, tenant, value); err != nil {
		return fmt.Errorf("failed to set polling_overdue_time: %w", err)
	}
	return nil
}

// SetTenantOverrides upserts the selected columns atomically.
// Unselected columns keep their stored value (NULL on insert).
func (s *PostgresStore) SetTenantOverrides(ctx context.Context, tenant string, poll, overdue *string, setPoll, setOverdue bool) error {
	if !setPoll {
		poll = nil
	}
	if !setOverdue {
		overdue = nil
	}

	query := `
		INSERT INTO tenant_metadata (tenant, polling_time, polling_overdue_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant) DO UPDATE SET
			polling_time = CASE WHEN $4::boolean
				THEN EXCLUDED.polling_time ELSE tenant_metadata.polling_time END,
			polling_overdue_time = CASE WHEN $5::boolean
				THEN EXCLUDED.polling_overdue_time ELSE tenant_metadata.polling_overdue_time END
	`
	if err := s.exec(ctx, query, tenant, poll, overdue, setPoll, setOverdue); err != nil {
		return fmt.Errorf("failed to set tenant overrides: %w", err)
	}
	return nil
}

// DeleteTenantMetadata removes a tenant's overrides.
func (s *PostgresStore) DeleteTenantMetadata(ctx context.Context, tenant string) error {
	if err := s.exec(ctx, `DELETE FROM tenant_metadata WHERE tenant = $1`, tenant); err != nil {
		return fmt.Errorf("failed to delete tenant metadata: %w", err)
	}
	return nil
}

func (s *PostgresStore) exec(ctx context.Context, query string, args ...any) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.Exec(ctx, query, args...)
	return err
}
