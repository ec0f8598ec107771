package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"learnpilot-rag/internal/app"
	"learnpilot-rag/internal/extract"
	"learnpilot-rag/internal/model"
	"learnpilot-rag/internal/storage"
	"learnpilot-rag/internal/transport/http/response"
)

// Ingester is the slice of the ingest service the handler uses.
type Ingester interface {
	Ingest(ctx context.Context, input app.IngestInput) (*app.IngestResult, error)
	Reindex(ctx context.Context, userID, documentID string) (*app.IngestResult, error)
	List(userID string) ([]model.Document, error)
	Events(userID, documentID string) ([]model.IngestionEvent, error)
	Delete(ctx context.Context, userID, documentID string) error
}

type DocumentHandler struct {
	ingester Ingester
}

func NewDocumentHandler(ingester Ingester) *DocumentHandler {
	return &DocumentHandler{ingester: ingester}
}

// Upload accepts a multipart form with a "file" part and a "userId"
// field, and runs the full ingest pipeline synchronously.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID := strings.TrimSpace(c.PostForm("userId"))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest,
			response.ReasonInvalidRequest, "missing file part")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer,
			response.ReasonInternal, "open uploaded file failed")
		return
	}
	defer file.Close()

	result, err := h.ingester.Ingest(c.Request.Context(), app.IngestInput{
		UserID:       userID,
		OriginalName: fileHeader.Filename,
		MediaType:    fileHeader.Header.Get("Content-Type"),
		DeclaredSize: fileHeader.Size,
		Body:         file,
	})
	if err != nil {
		writeIngestError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))

	docs, err := h.ingester.List(userID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest,
				response.ReasonMissingUserID, "userId is required")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer,
				response.ReasonInternal, "list documents failed")
		}
		return
	}

	response.OK(c, docs)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	documentID := c.Param("id")

	if err := h.ingester.Delete(c.Request.Context(), userID, documentID); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest,
				response.ReasonInvalidRequest, "userId and document id are required")
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound,
				response.ReasonNotFound, "document not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer,
				response.ReasonInternal, "delete document failed")
		}
		return
	}

	response.OK(c, gin.H{"deleted_document_id": documentID})
}

func (h *DocumentHandler) Reindex(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	documentID := c.Param("id")

	result, err := h.ingester.Reindex(c.Request.Context(), userID, documentID)
	if err != nil {
		if errors.Is(err, app.ErrDocumentNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound,
				response.ReasonNotFound, "document not found")
			return
		}
		writeIngestError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *DocumentHandler) Events(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	documentID := c.Param("id")

	events, err := h.ingester.Events(userID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest,
				response.ReasonInvalidRequest, "userId and document id are required")
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound,
				response.ReasonNotFound, "document not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer,
				response.ReasonInternal, "list ingestion events failed")
		}
		return
	}

	response.OK(c, events)
}

// writeIngestError maps pipeline failures onto the error envelope.
// Validation failures are the caller's fault and carry a machine
// readable reason; everything past staging is a server side failure.
func writeIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrMissingUserID):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest,
			response.ReasonMissingUserID, "userId is required")
	case errors.Is(err, storage.ErrUnsupportedMediaType):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest,
			response.ReasonUnsupportedMediaType, "file type is not supported")
	case errors.Is(err, storage.ErrPayloadTooLarge):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest,
			response.ReasonPayloadTooLarge, "file exceeds the size limit")
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest,
			response.ReasonInvalidRequest, "invalid request")
	case errors.Is(err, extract.ErrNoExtractableText):
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer,
			response.ReasonExtractionFailed, "no text could be extracted from the file")
	case errors.Is(err, extract.ErrOCRUnavailable):
		response.Error(c, http.StatusServiceUnavailable, response.CodeServiceUnavailable,
			response.ReasonBackendUnavailable, "image text extraction is not available")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer,
			response.ReasonInternal, "document ingestion failed")
	}
}
