package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/avelkers/medrecord/internal/common"
	"github.com/avelkers/medrecord/internal/dbx"
	"github.com/avelkers/medrecord/internal/logging"
	"github.com/avelkers/medrecord/internal/server/models"
	documentsrepo "github.com/avelkers/medrecord/internal/server/repositories/documents"
	filesrepo "github.com/avelkers/medrecord/internal/server/repositories/files"
	usersrepo "github.com/avelkers/medrecord/internal/server/repositories/users"
)

// --- fakes ---

type fakeBlobStore struct {
	objects map[string][]byte
	types   map[string]string

	putErr error
	getErr error
	delErr error

	deleted []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if f.getErr != nil {
		return nil, "", f.getErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, "", common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), f.types[key], nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.objects, key)
	return nil
}

type fakeFilesRepo struct {
	created   *models.File
	createErr error

	getOut *models.File
	getErr error

	delErr      error
	deletedIDs  []string
	createCalls int
}

func (f *fakeFilesRepo) Create(ctx context.Context, file *models.File) (*models.File, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	file.ID = "f1"
	file.CreatedAt = time.Now()
	f.created = file
	return file, nil
}

func (f *fakeFilesRepo) GetByID(ctx context.Context, userID, id string) (*models.File, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeFilesRepo) Delete(ctx context.Context, userID, id string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

type fakeDocsRepo struct {
	created   *models.Document
	createErr error

	getOut *models.Document
	getErr error

	listOut []*models.Document
	listErr error

	// stored, when set, has the mutable columns rewritten by Update, the
	// way the real repository does. File link and owner are left alone.
	stored    *models.Document
	updateOut *models.Document
	updateErr error

	delErr     error
	deletedIDs []string
}

func (f *fakeDocsRepo) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	doc.ID = "d1"
	doc.CreatedAt = time.Now()
	f.created = doc
	return doc, nil
}

func (f *fakeDocsRepo) GetByID(ctx context.Context, userID, id string) (*models.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeDocsRepo) ListByOwner(ctx context.Context, userID string) ([]*models.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

func (f *fakeDocsRepo) Update(ctx context.Context, doc *models.Document) (*models.Document, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.stored != nil {
		f.stored.Title = doc.Title
		f.stored.ServiceDate = doc.ServiceDate
		f.stored.Provider = doc.Provider
		f.stored.DocType = doc.DocType
		f.stored.Medication = doc.Medication
		return f.stored, nil
	}
	return f.updateOut, nil
}

func (f *fakeDocsRepo) Delete(ctx context.Context, userID, id string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

type fakeRepoManager struct {
	f *fakeFilesRepo
	d *fakeDocsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error   { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository         { return nil }
func (m *fakeRepoManager) Files(db dbx.DBTX) filesrepo.Repository         { return m.f }
func (m *fakeRepoManager) Documents(db dbx.DBTX) documentsrepo.Repository { return m.d }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newDocumentService(t *testing.T, db *sql.DB, rm *fakeRepoManager, blobs *fakeBlobStore) *DocumentService {
	t.Helper()
	return NewDocumentService(db, rm, blobs, testLogger())
}

func testAttrs() DocumentAttrs {
	return DocumentAttrs{
		Title:       "Blood test",
		ServiceDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Provider:    "Dr. Smith",
		DocType:     "lab",
		Medication:  "none",
	}
}

// --- tests ---

func TestUploadFile_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	blobs := newFakeBlobStore()
	rm := &fakeRepoManager{f: &fakeFilesRepo{}, d: &fakeDocsRepo{}}
	s := newDocumentService(t, db, rm, blobs)

	file, err := s.UploadFile(context.Background(), "u1", []byte("pdf-bytes"), "report.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("UploadFile error: %v", err)
	}

	if file.OriginalName != "report.pdf" || file.ContentType != "application/pdf" {
		t.Errorf("unexpected file: %+v", file)
	}
	if file.StorageKey == "" || file.StorageKey == "report.pdf" {
		t.Errorf("storage key must be generated, got %q", file.StorageKey)
	}
	if got := blobs.objects[file.StorageKey]; !bytes.Equal(got, []byte("pdf-bytes")) {
		t.Errorf("blob content mismatch: %q", got)
	}
}

func TestUploadFile_BlobFailureSkipsMetadata(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	blobs := newFakeBlobStore()
	blobs.putErr = errors.New("connection refused")
	rm := &fakeRepoManager{f: &fakeFilesRepo{}, d: &fakeDocsRepo{}}
	s := newDocumentService(t, db, rm, blobs)

	_, err := s.UploadFile(context.Background(), "u1", []byte("x"), "a.txt", "text/plain")
	if !errors.Is(err, common.ErrorStorage) {
		t.Fatalf("expected storage failure, got %v", err)
	}
	if rm.f.createCalls != 0 {
		t.Error("file row was created despite blob write failure")
	}
}

func TestCreate_UnknownFileIsValidationError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	// GetByID scopes by owner, so a file owned by a different user also
	// surfaces as not found here.
	rm := &fakeRepoManager{f: &fakeFilesRepo{getErr: common.ErrorNotFound}, d: &fakeDocsRepo{}}
	s := newDocumentService(t, db, rm, newFakeBlobStore())

	_, err := s.Create(context.Background(), "u1", testAttrs(), "someone-elses-file")
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreate_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		f: &fakeFilesRepo{getOut: &models.File{ID: "f1", UserID: "u1"}},
		d: &fakeDocsRepo{},
	}
	s := newDocumentService(t, db, rm, newFakeBlobStore())

	doc, err := s.Create(context.Background(), "u1", testAttrs(), "f1")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if doc.FileID != "f1" || doc.UserID != "u1" || doc.Title != "Blood test" {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestGetFile_NotFoundChain(t *testing.T) {
	tests := []struct {
		name string
		rm   *fakeRepoManager
	}{
		{
			name: "document missing or foreign",
			rm:   &fakeRepoManager{f: &fakeFilesRepo{}, d: &fakeDocsRepo{getErr: common.ErrorNotFound}},
		},
		{
			name: "document has no file",
			rm:   &fakeRepoManager{f: &fakeFilesRepo{}, d: &fakeDocsRepo{getOut: &models.Document{ID: "d1", UserID: "u1"}}},
		},
		{
			name: "file row missing",
			rm: &fakeRepoManager{
				f: &fakeFilesRepo{getErr: common.ErrorNotFound},
				d: &fakeDocsRepo{getOut: &models.Document{ID: "d1", UserID: "u1", FileID: "f1"}},
			},
		},
		{
			name: "blob missing",
			rm: &fakeRepoManager{
				f: &fakeFilesRepo{getOut: &models.File{ID: "f1", UserID: "u1", StorageKey: "users/u1/gone"}},
				d: &fakeDocsRepo{getOut: &models.Document{ID: "d1", UserID: "u1", FileID: "f1"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _ := newSQLMockDB(t)
			defer db.Close()

			s := newDocumentService(t, db, tt.rm, newFakeBlobStore())
			_, err := s.GetFile(context.Background(), "u1", "d1")
			if !errors.Is(err, common.ErrorNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}
		})
	}
}

func TestGetFile_RoundTrip(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	blobs := newFakeBlobStore()
	rm := &fakeRepoManager{f: &fakeFilesRepo{}, d: &fakeDocsRepo{}}
	s := newDocumentService(t, db, rm, blobs)

	uploaded, err := s.UploadFile(context.Background(), "u1", []byte("scan-bytes"), "scan.png", "image/png")
	if err != nil {
		t.Fatalf("UploadFile error: %v", err)
	}

	rm.f.getOut = uploaded
	rm.d.getOut = &models.Document{ID: "d1", UserID: "u1", FileID: uploaded.ID}

	download, err := s.GetFile(context.Background(), "u1", "d1")
	if err != nil {
		t.Fatalf("GetFile error: %v", err)
	}
	defer download.Body.Close()

	data, err := io.ReadAll(download.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.Equal(data, []byte("scan-bytes")) {
		t.Errorf("content mismatch: %q", data)
	}
	if download.ContentType != "image/png" || download.Name != "scan.png" {
		t.Errorf("unexpected download metadata: %+v", download)
	}
}

// Changing one field must leave every other field, the file link and the
// owner exactly as they were.
func TestUpdate_ChangesOnlyRequestedFields(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	stored := &models.Document{
		ID: "d1", UserID: "u1", FileID: "f1",
		Title:       "Blood test",
		ServiceDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Provider:    "Dr. Smith",
		DocType:     "lab",
		Medication:  "none",
	}
	rm := &fakeRepoManager{f: &fakeFilesRepo{}, d: &fakeDocsRepo{stored: stored}}
	s := newDocumentService(t, db, rm, newFakeBlobStore())

	attrs := testAttrs()
	attrs.Provider = "Dr. Jones"

	updated, err := s.Update(context.Background(), "u1", "d1", attrs)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}

	if updated.Provider != "Dr. Jones" {
		t.Errorf("provider not updated: %q", updated.Provider)
	}
	if updated.FileID != "f1" {
		t.Errorf("file link changed: %q", updated.FileID)
	}
	if updated.UserID != "u1" {
		t.Errorf("owner changed: %q", updated.UserID)
	}
	if updated.Title != "Blood test" || updated.DocType != "lab" || updated.Medication != "none" {
		t.Errorf("unrelated fields changed: %+v", updated)
	}
	if !updated.ServiceDate.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("service date changed: %v", updated.ServiceDate)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{f: &fakeFilesRepo{}, d: &fakeDocsRepo{updateErr: common.ErrorNotFound}}
	s := newDocumentService(t, db, rm, newFakeBlobStore())

	_, err := s.Update(context.Background(), "u1", "d-missing", testAttrs())
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDelete_CascadesToFileAndBlob(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	blobs := newFakeBlobStore()
	blobs.objects["users/u1/k1"] = []byte("x")

	rm := &fakeRepoManager{
		f: &fakeFilesRepo{getOut: &models.File{ID: "f1", UserID: "u1", StorageKey: "users/u1/k1"}},
		d: &fakeDocsRepo{getOut: &models.Document{ID: "d1", UserID: "u1", FileID: "f1"}},
	}
	s := newDocumentService(t, db, rm, blobs)

	if err := s.Delete(context.Background(), "u1", "d1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	if len(blobs.deleted) != 1 || blobs.deleted[0] != "users/u1/k1" {
		t.Errorf("blob delete not attempted: %v", blobs.deleted)
	}
	if len(rm.f.deletedIDs) != 1 || rm.f.deletedIDs[0] != "f1" {
		t.Errorf("file row not deleted: %v", rm.f.deletedIDs)
	}
	if len(rm.d.deletedIDs) != 1 || rm.d.deletedIDs[0] != "d1" {
		t.Errorf("document row not deleted: %v", rm.d.deletedIDs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("tx expectations: %v", err)
	}
}

// A blob-store failure never blocks metadata cleanup.
func TestDelete_BlobFailureIsSwallowed(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	blobs := newFakeBlobStore()
	blobs.delErr = errors.New("endpoint unreachable")

	rm := &fakeRepoManager{
		f: &fakeFilesRepo{getOut: &models.File{ID: "f1", UserID: "u1", StorageKey: "users/u1/k1"}},
		d: &fakeDocsRepo{getOut: &models.Document{ID: "d1", UserID: "u1", FileID: "f1"}},
	}
	s := newDocumentService(t, db, rm, blobs)

	if err := s.Delete(context.Background(), "u1", "d1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if len(rm.d.deletedIDs) != 1 {
		t.Error("document row not deleted after blob failure")
	}
}

func TestDelete_NotFound(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{f: &fakeFilesRepo{}, d: &fakeDocsRepo{getErr: common.ErrorNotFound}}
	s := newDocumentService(t, db, rm, newFakeBlobStore())

	if err := s.Delete(context.Background(), "u1", "d-missing"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestList_OrderPassThrough(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	newer := &models.Document{ID: "d2", ServiceDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	older := &models.Document{ID: "d1", ServiceDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	rm := &fakeRepoManager{f: &fakeFilesRepo{}, d: &fakeDocsRepo{listOut: []*models.Document{newer, older}}}
	s := newDocumentService(t, db, rm, newFakeBlobStore())

	docs, err := s.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "d2" {
		t.Errorf("unexpected order: %+v", docs)
	}
}
