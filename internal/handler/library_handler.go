package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/clipseek/internal/pkg/errcode"
	"github.com/xxxsen/clipseek/internal/pkg/response"
	"github.com/xxxsen/clipseek/internal/service"
)

type LibraryHandler struct {
	library *service.LibraryService
}

func NewLibraryHandler(library *service.LibraryService) *LibraryHandler {
	return &LibraryHandler{library: library}
}

func (h *LibraryHandler) List(c *gin.Context) {
	library, err := h.library.Library(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, library)
}

func (h *LibraryHandler) DeleteVideo(c *gin.Context) {
	count, err := h.library.DeleteVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted_clips": count})
}

type renameChannelRequest struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

func (h *LibraryHandler) RenameChannel(c *gin.Context) {
	var req renameChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	count, err := h.library.RenameChannel(c.Request.Context(), req.OldName, req.NewName)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"updated_clips": count})
}

// Transcript downloads a video's indexed transcript as an SRT file.
func (h *LibraryHandler) Transcript(c *gin.Context) {
	filename, body, err := h.library.TranscriptSRT(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/x-subrip", []byte(body))
}
