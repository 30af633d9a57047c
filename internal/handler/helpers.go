package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/clipseek/internal/ai"
	"github.com/xxxsen/clipseek/internal/pkg/errcode"
	appErr "github.com/xxxsen/clipseek/internal/pkg/errors"
	"github.com/xxxsen/clipseek/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	switch {
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case appErr.IsNotFound(err):
		response.Error(c, errcode.ErrNotFound, err.Error())
	case errors.Is(err, appErr.ErrEmptyLibrary):
		response.Error(c, errcode.ErrEmptyLibrary, "library is empty, index some content first")
	case appErr.IsCredential(err):
		response.Error(c, errcode.ErrUnauthorized, err.Error())
	case appErr.IsNoTranscript(err):
		response.Error(c, errcode.ErrNoTranscript, err.Error())
	case appErr.IsRateLimited(err):
		response.Error(c, errcode.ErrUpstreamFailed, err.Error())
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, err.Error())
	case errors.Is(err, ai.ErrUnavailable):
		response.Error(c, errcode.ErrAIUnavailable, err.Error())
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
