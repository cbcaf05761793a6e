// internal/handlers/media.go
package handlers

import (
	"mime/multipart"
	"net/http"

	"abiahub/internal/services"

	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	fileService *services.FileService
}

func NewMediaHandler(fileService *services.FileService) *MediaHandler {
	return &MediaHandler{fileService: fileService}
}

// UploadImage accepts a multipart image under "file" and returns its URL.
// Clients attach the URL to a report afterwards.
func (h *MediaHandler) UploadImage(c *gin.Context) {
	h.upload(c, h.fileService.SaveImage)
}

func (h *MediaHandler) UploadVideo(c *gin.Context) {
	h.upload(c, h.fileService.SaveVideo)
}

func (h *MediaHandler) UploadVoiceNote(c *gin.Context) {
	h.upload(c, h.fileService.SaveVoiceNote)
}

func (h *MediaHandler) upload(c *gin.Context, save func(*multipart.FileHeader) (string, error)) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Missing file",
			"details": "multipart field 'file' is required",
		})
		return
	}

	url, err := save(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Upload rejected",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"url": url,
	})
}
