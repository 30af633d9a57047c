package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/clipseek/internal/pkg/errcode"
	"github.com/xxxsen/clipseek/internal/pkg/response"
	"github.com/xxxsen/clipseek/internal/service"
)

type IngestHandler struct {
	ingest *service.IngestService
}

func NewIngestHandler(ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

type ingestRequest struct {
	URL string `json:"url"`
}

// Ingest validates the reference up front, then streams progress lines
// as server-sent events until the batch finishes or the client leaves.
// The stream always terminates with a [DONE] sentinel.
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}

	events, err := h.ingest.Ingest(c.Request.Context(), req.URL)
	if err != nil {
		handleError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	for event := range events {
		fmt.Fprintf(c.Writer, "data: %s\n\n", event.Message)
		c.Writer.Flush()
	}
	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	c.Writer.Flush()
}
