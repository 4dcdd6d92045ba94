package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vandap/vandap-backend/internal/response"
	"github.com/vandap/vandap-backend/internal/service"
)

// MediaHandler exposes question paper uploads.
type MediaHandler struct {
	media *service.MediaService
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(media *service.MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

// UploadPaper godoc
// POST /api/v1/supervisor/media/papers
// Accepts a multipart "file" (PDF or image) and returns the content ref to
// attach to a question.
func (h *MediaHandler) UploadPaper(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	ref, err := h.media.SavePaperUpload(file, header)
	if err != nil {
		failMediaError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"content_ref": ref})
}
