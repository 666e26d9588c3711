package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	services "github.com/docuquery/rag-be/service"
	"github.com/docuquery/rag-be/types"
	"github.com/docuquery/rag-be/utils"
)

type DocumentHandler struct {
	ingestService *services.IngestService
	uploadDir     string
}

func NewDocumentHandler(ingestService *services.IngestService, uploadDir string) *DocumentHandler {
	return &DocumentHandler{
		ingestService: ingestService,
		uploadDir:     uploadDir,
	}
}

// UploadDocumentHandler accepts a multipart upload and starts background
// ingestion. It answers 202 with the document ID; clients poll the status
// endpoint.
func (h *DocumentHandler) UploadDocumentHandler(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid file",
		})
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Failed to read file",
		})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = utils.ContentTypeFromName(header.Filename)
	}

	// Keep the original upload on disk; failing to archive it is not a
	// reason to reject the ingestion.
	if h.uploadDir != "" {
		if _, err := utils.SaveUpload(h.uploadDir, header.Filename, raw); err != nil {
			log.Printf("failed to archive upload %s: %v", header.Filename, err)
		}
	}

	task, err := h.ingestService.Ingest(c.Request.Context(), raw, header.Filename, contentType)
	if err != nil {
		c.JSON(statusForError(err), types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, types.DataResponse{
		Status: true,
		Data: types.UploadResponse{
			DocumentID: task.DocumentID,
			FileName:   header.Filename,
			Status:     types.StatusPending,
		},
	})
}

// GetStatusHandler reports the processing status of one document.
func (h *DocumentHandler) GetStatusHandler(c *gin.Context) {
	doc, err := h.ingestService.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusForError(err), types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data: types.StatusResponse{
			DocumentID: doc.ID,
			Status:     doc.Status,
			Message:    doc.Metadata["error"],
		},
	})
}

// ListDocumentsHandler returns the most recently uploaded documents.
func (h *DocumentHandler) ListDocumentsHandler(c *gin.Context) {
	docs, err := h.ingestService.ListDocuments(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   docs,
	})
}

// DeleteDocumentHandler removes a document and cascades removal of its
// chunks and vectors.
func (h *DocumentHandler) DeleteDocumentHandler(c *gin.Context) {
	if err := h.ingestService.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusForError(err), types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status:  true,
		Message: "Document deleted",
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, types.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
