package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/clipseek/internal/pkg/errcode"
	"github.com/xxxsen/clipseek/internal/pkg/response"
	"github.com/xxxsen/clipseek/internal/service"
)

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.Limit == 0 {
		req.Limit = 5
	}
	// X-API-Key lets the caller supply their own provider credential
	// for this request only.
	result, err := h.search.Search(c.Request.Context(), req.Query, req.Limit, c.GetHeader("X-API-Key"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
