package medical

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"petcare-backend/internal/shared/server/respond"
	"petcare-backend/internal/shared/telemetry"
)

// Handler exposes the clinical-document text extraction endpoint.
type Handler struct{}

// NewHandler constructs a Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes attaches medical-record routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/medical-records/extract", h.extract)
}

func (h *Handler) extract(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart field 'file' is required", nil)
		return
	}
	if fileHeader.Size > MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read upload", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read upload", nil)
		return
	}
	if len(data) > MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit", nil)
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	text, err := ExtractText(c.Request.Context(), data, mimeType, fileHeader.Filename)
	if err != nil {
		if strings.Contains(err.Error(), "unsupported mime type") {
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", "only PDF and plain text documents are supported", nil)
			return
		}
		telemetry.Error("medical.extract", map[string]any{
			"file_name": fileHeader.Filename,
			"mime_type": mimeType,
			"error":     err.Error(),
		})
		respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", "failed to extract text from document", nil)
		return
	}

	respond.OK(c, gin.H{
		"fileName":   fileHeader.Filename,
		"text":       text,
		"charLength": len(text),
	})
}
