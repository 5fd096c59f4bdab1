package tenders

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/tenderhub/tender-insight-hub/internal/api/views"
	"github.com/tenderhub/tender-insight-hub/internal/services"
)

// @Summary      Upload document
// @Description  Stores a file against the tender. The multipart field is "file".
// @Tags         Documents
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path      string  true  "Tender ID"
// @Param        file  formData  file    true  "Document"
// @Success      201  {object}  views.Document
// @Failure      400  {object}  map[string]interface{}  "Missing file"
// @Failure      404  {object}  map[string]interface{}  "Tender not found"
// @Failure      413  {object}  map[string]interface{}  "File too large"
// @Router       /api/tenders/{id}/documents [post]
// UploadDocument handles POST /api/tenders/:id/documents
func (h *Handler) UploadDocument(c *gin.Context) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("File exceeds the %d byte upload limit", h.maxUploadSize),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := h.documents.Upload(c.Request.Context(), c.Param("id"), header.Filename, header.Size, file)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.Is(err, services.ErrTenderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Tender not found"})
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store document"})
		}
		return
	}

	c.JSON(http.StatusCreated, views.NewDocument(doc))
}

// @Summary      Download document
// @Description  Redirects to the document URL, or streams the file when the storage backend cannot issue one.
// @Tags         Documents
// @Param        id     path  string  true  "Tender ID"
// @Param        docID  path  string  true  "Document ID"
// @Success      200  {file}    file
// @Success      302  {string}  string  "Redirect to document"
// @Failure      404  {object}  map[string]interface{}  "Document not found"
// @Router       /api/tenders/{id}/documents/{docID}/download [get]
// DownloadDocument handles GET /api/tenders/:id/documents/:docID/download
func (h *Handler) DownloadDocument(c *gin.Context) {
	dl, err := h.documents.Download(c.Request.Context(), c.Param("id"), c.Param("docID"))
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get document"})
		return
	}

	if dl.Body == nil {
		c.Redirect(http.StatusFound, dl.URL)
		return
	}
	defer dl.Body.Close()

	contentType := mime.TypeByExtension(path.Ext(dl.Document.Name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := dl.Document.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, contentType, dl.Body, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": dl.Document.Name}),
	})
}
