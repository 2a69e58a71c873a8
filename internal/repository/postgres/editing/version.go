package editing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"casefile/internal/domain"
	models "casefile/internal/domain/models/editing"
	"casefile/internal/domain/repositories"
	editingRepo "casefile/internal/domain/repositories/editing"
	"casefile/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const versionColumns = `id, document_id, version_number, label, change_summary, change_type,
	content_ref, content_hash, word_count, character_count, words_added, words_removed,
	size_bytes, created_by, created_at, tier, archived, rehydration_state,
	rehydration_requested_at, rehydrated_at`

// PostgresVersionRepository implements the VersionRepository interface
type PostgresVersionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(config *postgres.RepositoryConfig) editingRepo.VersionRepository {
	return &PostgresVersionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Append advances the document head and inserts the version. The head update
// is guarded on the previous version number, so an append computed from a
// stale head changes nothing and reports a conflict.
func (r *PostgresVersionRepository) Append(ctx context.Context, v *models.Version, head *models.Document) error {
	if !repositories.InTx(ctx) {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			return r.Append(repositories.SetTx(ctx, tx), v, head)
		})
	}

	updateHead := fmt.Sprintf(`
		UPDATE %s
		SET name = $2, content = $3, content_hash = $4, current_version_number = $5, updated_at = $6
		WHERE id = $1 AND current_version_number = $7
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, updateHead,
		head.ID,
		head.Name,
		head.Content,
		head.ContentHash,
		v.VersionNumber,
		head.UpdatedAt,
		v.VersionNumber-1,
	)
	if err != nil {
		return fmt.Errorf("advance document head: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s is no longer at version %d: %w", head.ID, v.VersionNumber-1, domain.ErrConflict)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`, r.tables.Versions, versionColumns)

	_, err = executor.Exec(ctx, insert,
		v.ID,
		v.DocumentID,
		v.VersionNumber,
		v.Label,
		v.ChangeSummary,
		v.ChangeType,
		v.ContentRef,
		v.ContentHash,
		v.WordCount,
		v.CharacterCount,
		v.WordsAdded,
		v.WordsRemoved,
		v.SizeBytes,
		v.CreatedBy,
		v.CreatedAt,
		v.Tier,
		v.Archived,
		v.RehydrationState,
		v.RehydrationRequestedAt,
		v.RehydratedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("version %d of document %s: %w", v.VersionNumber, v.DocumentID, domain.ErrConflict)
		}
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

// GetByID retrieves a version of a document by its ID
func (r *PostgresVersionRepository) GetByID(ctx context.Context, documentID, id string) (*models.Version, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE document_id = $1 AND id = $2
	`, versionColumns, r.tables.Versions)

	executor := postgres.GetExecutor(ctx, r.pool)
	v, err := scanVersion(executor.QueryRow(ctx, query, documentID, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, fmt.Errorf("version %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

// GetByNumber retrieves a version of a document by its number
func (r *PostgresVersionRepository) GetByNumber(ctx context.Context, documentID string, number int) (*models.Version, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE document_id = $1 AND version_number = $2
	`, versionColumns, r.tables.Versions)

	executor := postgres.GetExecutor(ctx, r.pool)
	v, err := scanVersion(executor.QueryRow(ctx, query, documentID, number))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, fmt.Errorf("version %d: %w", number, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

// List returns version metadata newest first
func (r *PostgresVersionRepository) List(ctx context.Context, documentID string, beforeNumber, limit int) ([]models.Version, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `
		SELECT %s
		FROM %s
		WHERE document_id = $1`, versionColumns, r.tables.Versions)

	args := []interface{}{documentID}
	if beforeNumber > 0 {
		args = append(args, beforeNumber)
		fmt.Fprintf(&sb, " AND version_number < $%d", len(args))
	}
	sb.WriteString(" ORDER BY version_number DESC")
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	versions := make([]models.Version, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return versions, nil
}

// UpdateTierState writes the tier and rehydration columns
func (r *PostgresVersionRepository) UpdateTierState(ctx context.Context, v *models.Version) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET tier = $3, archived = $4, rehydration_state = $5,
		    rehydration_requested_at = $6, rehydrated_at = $7
		WHERE document_id = $1 AND id = $2
	`, r.tables.Versions)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		v.DocumentID,
		v.ID,
		v.Tier,
		v.Archived,
		v.RehydrationState,
		v.RehydrationRequestedAt,
		v.RehydratedAt,
	)
	if err != nil {
		return fmt.Errorf("update tier state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("version %s: %w", v.ID, domain.ErrNotFound)
	}
	return nil
}

func scanVersion(row pgx.Row) (*models.Version, error) {
	var v models.Version
	err := row.Scan(
		&v.ID,
		&v.DocumentID,
		&v.VersionNumber,
		&v.Label,
		&v.ChangeSummary,
		&v.ChangeType,
		&v.ContentRef,
		&v.ContentHash,
		&v.WordCount,
		&v.CharacterCount,
		&v.WordsAdded,
		&v.WordsRemoved,
		&v.SizeBytes,
		&v.CreatedBy,
		&v.CreatedAt,
		&v.Tier,
		&v.Archived,
		&v.RehydrationState,
		&v.RehydrationRequestedAt,
		&v.RehydratedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
