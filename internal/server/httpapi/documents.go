package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/avelkers/medrecord/internal/server/models"
	"github.com/gorilla/mux"
)

type fileResponse struct {
	ID           string `json:"id"`
	OriginalName string `json:"original_name"`
	ContentType  string `json:"content_type"`
	CreatedAt    string `json:"created_at"`
}

type documentResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	ServiceDate string  `json:"service_date"`
	Provider    string  `json:"provider"`
	DocType     string  `json:"doc_type"`
	Medication  string  `json:"medication"`
	FileID      *string `json:"file_id"`
	CreatedAt   string  `json:"created_at"`
}

func toDocumentResponse(doc *models.Document) documentResponse {
	resp := documentResponse{
		ID:          doc.ID,
		Title:       doc.Title,
		ServiceDate: doc.ServiceDate.Format(serviceDateLayout),
		Provider:    doc.Provider,
		DocType:     doc.DocType,
		Medication:  doc.Medication,
		CreatedAt:   doc.CreatedAt.Format(time.RFC3339),
	}
	if doc.FileID != "" {
		fileID := doc.FileID
		resp.FileID = &fileID
	}
	return resp
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "expecting multipart file")
		return
	}
	defer func(file multipart.File) {
		_ = file.Close()
	}(file)

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "file reading error")
		return
	}

	originalName := header.Filename
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	created, err := s.documents.UploadFile(r.Context(), user.ID, data, originalName, contentType)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, fileResponse{
		ID:           created.ID,
		OriginalName: created.OriginalName,
		ContentType:  created.ContentType,
		CreatedAt:    created.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	docs, err := s.documents.List(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	result := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		result = append(result, toDocumentResponse(doc))
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetDocumentFile(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	docID := mux.Vars(r)["id"]

	download, err := s.documents.GetFile(r.Context(), user.ID, docID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	defer download.Body.Close()

	contentType := download.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", download.Name))

	if _, err := io.Copy(w, download.Body); err != nil {
		s.logger.Error(r.Context(), "file download aborted", "error", err)
	}
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	attrs, err := req.Attrs()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if req.FileID == "" {
		respondError(w, http.StatusBadRequest, "file_id is required")
		return
	}

	doc, err := s.documents.Create(r.Context(), user.ID, attrs, req.FileID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	docID := mux.Vars(r)["id"]

	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	attrs, err := req.Attrs()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	doc, err := s.documents.Update(r.Context(), user.ID, docID, attrs)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	docID := mux.Vars(r)["id"]

	if err := s.documents.Delete(r.Context(), user.ID, docID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
