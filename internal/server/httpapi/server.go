// Package httpapi exposes the HTTP surface: routing, bearer-token
// authentication, request validation, and JSON rendering. All business logic
// lives in the services layer.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avelkers/medrecord/internal/logging"
	"github.com/avelkers/medrecord/internal/server/models"
	"github.com/avelkers/medrecord/internal/server/services"
	"github.com/gorilla/mux"
)

// UserService is the authentication contract the API depends on.
type UserService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// DocumentService is the document/file lifecycle contract the API depends on.
type DocumentService interface {
	UploadFile(ctx context.Context, userID string, data []byte, originalName, contentType string) (*models.File, error)
	List(ctx context.Context, userID string) ([]*models.Document, error)
	GetFile(ctx context.Context, userID, docID string) (*services.FileDownload, error)
	Create(ctx context.Context, userID string, attrs services.DocumentAttrs, fileID string) (*models.Document, error)
	Update(ctx context.Context, userID, docID string, attrs services.DocumentAttrs) (*models.Document, error)
	Delete(ctx context.Context, userID, docID string) error
}

type Server struct {
	address        string
	users          UserService
	documents      DocumentService
	logger         logging.Logger
	maxUploadBytes int64
}

func NewServer(address string, l logging.Logger, us UserService, ds DocumentService, maxUploadBytes int64) *Server {
	return &Server{
		address:        address,
		logger:         l.With("module", "http_server"),
		users:          us,
		documents:      ds,
		maxUploadBytes: maxUploadBytes,
	}
}

// Router assembles the route table. Split out from Run so tests can drive
// the full stack through httptest.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	docs := router.PathPrefix("/documents").Subrouter()
	docs.Use(s.authMiddleware)
	docs.HandleFunc("/files", s.handleUploadFile).Methods(http.MethodPost)
	docs.HandleFunc("", s.handleListDocuments).Methods(http.MethodGet)
	docs.HandleFunc("", s.handleCreateDocument).Methods(http.MethodPost)
	docs.HandleFunc("/{id}/file", s.handleGetDocumentFile).Methods(http.MethodGet)
	docs.HandleFunc("/{id}/update", s.handleUpdateDocument).Methods(http.MethodPost)
	docs.HandleFunc("/{id}/delete", s.handleDeleteDocument).Methods(http.MethodPost)

	return corsMiddleware(s.loggingMiddleware(router))
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info(r.Context(), "request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start).String())
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
