package documents

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

func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {

	query :=
		`INSERT INTO documents (user_id, file_id, title, service_date, provider, doc_type, medication)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		doc.UserID, nullableID(doc.FileID), doc.Title, doc.ServiceDate,
		doc.Provider, doc.DocType, doc.Medication).Scan(&doc.ID, &doc.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return doc, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*models.Document, error) {
	query :=
		`SELECT id, user_id, file_id, title, service_date, provider, doc_type, medication, created_at
		 FROM documents
		 WHERE id = $1 AND user_id = $2
		 `

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return doc, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, userID string) ([]*models.Document, error) {
	query :=
		`SELECT id, user_id, file_id, title, service_date, provider, doc_type, medication, created_at
		 FROM documents
		 WHERE user_id = $1
		 ORDER BY service_date DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []*models.Document

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, doc *models.Document) (*models.Document, error) {

	query :=
		`UPDATE documents
		 SET title = $1, service_date = $2, provider = $3, doc_type = $4, medication = $5
		 WHERE id = $6 AND user_id = $7
		 RETURNING id, user_id, file_id, title, service_date, provider, doc_type, medication, created_at
		 `

	updated, err := scanDocument(r.db.QueryRowContext(ctx, query,
		doc.Title, doc.ServiceDate, doc.Provider, doc.DocType, doc.Medication,
		doc.ID, doc.UserID))

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM documents WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	doc := &models.Document{}
	var fileID sql.NullString

	err := row.Scan(&doc.ID, &doc.UserID, &fileID, &doc.Title, &doc.ServiceDate,
		&doc.Provider, &doc.DocType, &doc.Medication, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}

	doc.FileID = fileID.String
	return doc, nil
}

func nullableID(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}
