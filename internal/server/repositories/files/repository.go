// Package files persists metadata rows for uploaded binary objects.
// Every read and delete takes the owner's user id as a mandatory
// parameter so ownership filtering cannot be forgotten at a call site.
package files

import (
	"context"

	"github.com/avelkers/medrecord/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	GetByID(ctx context.Context, userID, id string) (*models.File, error)
	Delete(ctx context.Context, userID, id string) error
}
