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

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) editingRepo.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a document row at version 0
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, content, content_hash, current_version_number, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		doc.ID,
		doc.Name,
		doc.Content,
		doc.ContentHash,
		doc.CurrentVersionNumber,
		doc.CreatedBy,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("document %s already exists", doc.ID),
				ResourceType: "document",
				ResourceID:   doc.ID,
			}
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate retrieves a document and locks its row until the surrounding
// transaction ends
func (r *PostgresDocumentRepository) GetForUpdate(ctx context.Context, id string) (*models.Document, error) {
	return r.get(ctx, id, "FOR UPDATE")
}

func (r *PostgresDocumentRepository) get(ctx context.Context, id, lockClause string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, name, content, content_hash, current_version_number, created_by, created_at, updated_at
		FROM %s
		WHERE id = $1
		%s
	`, r.tables.Documents, lockClause)

	var doc models.Document
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.Name,
		&doc.Content,
		&doc.ContentHash,
		&doc.CurrentVersionNumber,
		&doc.CreatedBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}
