package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Sundussheikhdev/sync-board-BE/internal/blob"
)

// UploadHandlers provides HTTP handlers for file attachments.
type UploadHandlers struct {
	blobs        blob.Store
	allowedTypes map[string]struct{}
	maxSize      int64
	log          *zerolog.Logger
}

// NewUploadHandlers creates a new upload handlers instance.
func NewUploadHandlers(blobs blob.Store, allowedTypes []string, maxSize int64, logger *zerolog.Logger) *UploadHandlers {
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = struct{}{}
	}
	return &UploadHandlers{
		blobs:        blobs,
		allowedTypes: allowed,
		maxSize:      maxSize,
		log:          logger,
	}
}

// UploadResponse represents a stored attachment in API responses.
type UploadResponse struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	Size     int64  `json:"size"`
}

// Upload handles multipart file uploads for chat attachments.
// POST /api/upload
func (h *UploadHandlers) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSize)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.log.Debug().Err(err).Msg("invalid upload request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or oversized file"})
		return
	}
	defer file.Close()

	if header.Size > h.maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file too large"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if _, ok := h.allowedTypes[contentType]; !ok {
		h.log.Debug().Str("content_type", contentType).Msg("rejected upload type")
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: "file type not allowed"})
		return
	}

	obj, err := h.blobs.Put(c.Request.Context(), file, header.Filename, contentType)
	if err != nil {
		h.log.Error().Err(err).Str("file", header.Filename).Msg("failed to store upload")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("key", obj.Key).Int64("size", obj.Size).Str("type", contentType).Msg("file uploaded")
	c.JSON(http.StatusCreated, UploadResponse{
		URL:      obj.URL,
		FileName: header.Filename,
		FileType: contentType,
		Size:     obj.Size,
	})
}

// ServeFile streams a stored attachment back to the client.
// GET /files/:key
func (h *UploadHandlers) ServeFile(c *gin.Context) {
	key := c.Param("key")

	r, contentType, err := h.blobs.Open(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "file not found"})
		return
	}
	defer r.Close()

	c.DataFromReader(http.StatusOK, -1, contentType, r, nil)
}
