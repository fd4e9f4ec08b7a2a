package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avelkers/medrecord/internal/common"
	"github.com/avelkers/medrecord/internal/dbx"
	"github.com/avelkers/medrecord/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {

	query :=
		`INSERT INTO files (user_id, original_name, storage_key, content_type)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		file.UserID, file.OriginalName, file.StorageKey, file.ContentType).Scan(&file.ID, &file.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*models.File, error) {
	query :=
		`SELECT id, user_id, original_name, storage_key, content_type, created_at FROM files
		 WHERE id = $1 AND user_id = $2
		 `

	file := &models.File{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&file.ID, &file.UserID, &file.OriginalName, &file.StorageKey, &file.ContentType, &file.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM files WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return common.ErrorNotFound
	}

	return nil
}
