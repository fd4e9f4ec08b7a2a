package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/avelkers/medrecord/internal/common"
	"github.com/avelkers/medrecord/internal/dbx"
	"github.com/avelkers/medrecord/internal/logging"
	"github.com/avelkers/medrecord/internal/server/blob"
	"github.com/avelkers/medrecord/internal/server/models"
	"github.com/avelkers/medrecord/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// DocumentAttrs carries the mutable fields of a document. FileID is not here
// on purpose: the link is set once at creation and never changed by updates.
type DocumentAttrs struct {
	Title       string
	ServiceDate time.Time
	Provider    string
	DocType     string
	Medication  string
}

// FileDownload is an open handle on a stored file body. The caller owns Body
// and must close it.
type FileDownload struct {
	Body        io.ReadCloser
	ContentType string
	Name        string
}

// DocumentService orchestrates the File and Document lifecycle across the
// metadata store and the blob store, enforcing ownership on every access.
//
// Cross-store sequences are deliberately not atomic: on upload the blob is
// written before the metadata row, and on delete the blob is removed before
// the rows, so a partial failure orphans a blob rather than leaving metadata
// pointing at missing bytes. There is no reconciliation sweep.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blob.Store
	logger      logging.Logger
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, blobs blob.Store, logger logging.Logger) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		logger:      logger.With("module", "document_service"),
	}
}

// getRandomStorageKey returns a fresh blob key namespaced under the owner.
// Keys are never derived from the client-supplied file name.
func getRandomStorageKey(userID string) string {
	return fmt.Sprintf("users/%s/%s", userID, uuid.New())
}

// UploadFile stores the bytes in the blob store and then records a File row.
// If the blob write fails no row is created; if the row insert fails the
// already-written blob is orphaned, which is logged and otherwise accepted.
func (s *DocumentService) UploadFile(ctx context.Context, userID string, data []byte, originalName, contentType string) (*models.File, error) {

	key := getRandomStorageKey(userID)

	if err := s.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		s.logger.Error(ctx, "blob write failed", "key", key, "error", err)
		return nil, common.ErrorStorage
	}

	file := &models.File{
		UserID:       userID,
		OriginalName: originalName,
		StorageKey:   key,
		ContentType:  contentType,
	}

	repo := s.repomanager.Files(s.db)
	created, err := repo.Create(ctx, file)
	if err != nil {
		s.logger.Error(ctx, "file row insert failed, blob orphaned", "key", key, "error", err)
		return nil, common.ErrorInternal
	}

	return created, nil
}

// List returns the user's documents ordered by service date descending.
func (s *DocumentService) List(ctx context.Context, userID string) ([]*models.Document, error) {
	repo := s.repomanager.Documents(s.db)

	docs, err := repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return docs, nil
}

// GetFile opens the file linked to the document. Every miss along the chain
// (document not owned, no linked file, missing row, missing blob) is the
// same ErrorNotFound, so documents of other users are indistinguishable from
// nonexistent ones.
func (s *DocumentService) GetFile(ctx context.Context, userID, docID string) (*FileDownload, error) {
	docRepo := s.repomanager.Documents(s.db)

	doc, err := docRepo.GetByID(ctx, userID, docID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	if doc.FileID == "" {
		return nil, common.ErrorNotFound
	}

	fileRepo := s.repomanager.Files(s.db)
	file, err := fileRepo.GetByID(ctx, userID, doc.FileID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	body, contentType, err := s.blobs.Get(ctx, file.StorageKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "file row points at missing blob", "key", file.StorageKey)
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorStorage
	}

	if contentType == "" {
		contentType = file.ContentType
	}

	return &FileDownload{Body: body, ContentType: contentType, Name: file.OriginalName}, nil
}

// Create validates the file link and persists a new document. The referenced
// file must already exist and belong to the same user; anything else is a
// validation failure, not a not-found, because the request body is at fault.
func (s *DocumentService) Create(ctx context.Context, userID string, attrs DocumentAttrs, fileID string) (*models.Document, error) {

	fileRepo := s.repomanager.Files(s.db)
	if _, err := fileRepo.GetByID(ctx, userID, fileID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown file", common.ErrorValidation)
		}
		return nil, common.ErrorInternal
	}

	doc := &models.Document{
		UserID:      userID,
		FileID:      fileID,
		Title:       attrs.Title,
		ServiceDate: attrs.ServiceDate,
		Provider:    attrs.Provider,
		DocType:     attrs.DocType,
		Medication:  attrs.Medication,
	}

	docRepo := s.repomanager.Documents(s.db)
	created, err := docRepo.Create(ctx, doc)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return created, nil
}

// Update rewrites the mutable fields of an owned document. The file link and
// owner are never altered.
func (s *DocumentService) Update(ctx context.Context, userID, docID string, attrs DocumentAttrs) (*models.Document, error) {
	repo := s.repomanager.Documents(s.db)

	doc := &models.Document{
		ID:          docID,
		UserID:      userID,
		Title:       attrs.Title,
		ServiceDate: attrs.ServiceDate,
		Provider:    attrs.Provider,
		DocType:     attrs.DocType,
		Medication:  attrs.Medication,
	}

	updated, err := repo.Update(ctx, doc)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	return updated, nil
}

// Delete removes an owned document together with its linked file and blob.
// The blob delete runs first and is best-effort: a blob-store failure is
// logged and swallowed so metadata cleanup always proceeds. The two row
// deletes share one metadata transaction.
func (s *DocumentService) Delete(ctx context.Context, userID, docID string) error {
	docRepo := s.repomanager.Documents(s.db)

	doc, err := docRepo.GetByID(ctx, userID, docID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	var storageKey string
	if doc.FileID != "" {
		fileRepo := s.repomanager.Files(s.db)
		file, err := fileRepo.GetByID(ctx, userID, doc.FileID)
		switch {
		case err == nil:
			storageKey = file.StorageKey
		case errors.Is(err, common.ErrorNotFound):
			s.logger.Warn(ctx, "document links missing file row", "document_id", docID)
		default:
			return common.ErrorInternal
		}
	}

	if storageKey != "" {
		if err := s.blobs.Delete(ctx, storageKey); err != nil {
			s.logger.Warn(ctx, "blob delete failed, blob orphaned", "key", storageKey, "error", err)
		}
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if doc.FileID != "" {
			if err := s.repomanager.Files(tx).Delete(ctx, userID, doc.FileID); err != nil && !errors.Is(err, common.ErrorNotFound) {
				return err
			}
		}
		return s.repomanager.Documents(tx).Delete(ctx, userID, docID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	return nil
}
