package editing

import (
	"context"
	"fmt"
	"log/slog"

	"casefile/internal/domain"
	models "casefile/internal/domain/models/editing"
	editingRepo "casefile/internal/domain/repositories/editing"
	"casefile/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLockRepository implements the LockRepository interface
type PostgresLockRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewLockRepository creates a new lock repository
func NewLockRepository(config *postgres.RepositoryConfig) editingRepo.LockRepository {
	return &PostgresLockRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Get retrieves the lock row of a document
func (r *PostgresLockRepository) Get(ctx context.Context, documentID string) (*models.Lock, error) {
	query := fmt.Sprintf(`
		SELECT document_id, holder_id, holder_name, session_id, acquired_at,
		       last_heartbeat_at, expires_at, released_at, release_reason
		FROM %s
		WHERE document_id = $1
	`, r.tables.Locks)

	var lock models.Lock
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, documentID).Scan(
		&lock.DocumentID,
		&lock.HolderID,
		&lock.HolderName,
		&lock.SessionID,
		&lock.AcquiredAt,
		&lock.LastHeartbeatAt,
		&lock.ExpiresAt,
		&lock.ReleasedAt,
		&lock.ReleaseReason,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("lock for document %s: %w", documentID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get lock: %w", err)
	}
	return &lock, nil
}

// Upsert writes the lock row, replacing the previous holder
func (r *PostgresLockRepository) Upsert(ctx context.Context, lock *models.Lock) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, holder_id, holder_name, session_id, acquired_at,
		                last_heartbeat_at, expires_at, released_at, release_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (document_id) DO UPDATE SET
			holder_id = EXCLUDED.holder_id,
			holder_name = EXCLUDED.holder_name,
			session_id = EXCLUDED.session_id,
			acquired_at = EXCLUDED.acquired_at,
			last_heartbeat_at = EXCLUDED.last_heartbeat_at,
			expires_at = EXCLUDED.expires_at,
			released_at = EXCLUDED.released_at,
			release_reason = EXCLUDED.release_reason
	`, r.tables.Locks)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		lock.DocumentID,
		lock.HolderID,
		lock.HolderName,
		lock.SessionID,
		lock.AcquiredAt,
		lock.LastHeartbeatAt,
		lock.ExpiresAt,
		lock.ReleasedAt,
		lock.ReleaseReason,
	)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("document %s: %w", lock.DocumentID, domain.ErrNotFound)
		}
		return fmt.Errorf("upsert lock: %w", err)
	}
	return nil
}
