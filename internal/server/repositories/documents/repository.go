// Package documents persists the structured medical-event records.
// As with files, every query is scoped to the owning user; a document
// belonging to someone else behaves exactly like a missing one.
package documents

import (
	"context"

	"github.com/avelkers/medrecord/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)
	GetByID(ctx context.Context, userID, id string) (*models.Document, error)
	// ListByOwner returns the user's documents ordered by service date,
	// most recent first.
	ListByOwner(ctx context.Context, userID string) ([]*models.Document, error)
	// Update rewrites the mutable fields of doc (title, service date,
	// provider, doc type, medication). FileID and UserID are never touched.
	Update(ctx context.Context, doc *models.Document) (*models.Document, error)
	Delete(ctx context.Context, userID, id string) error
}
