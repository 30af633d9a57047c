package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/clipseek/internal/middleware"
)

// ingestRateWindow throttles batch starts per client; one batch already
// fans out into many upstream requests.
const ingestRateWindow = 2 * time.Second

type RouterDeps struct {
	Ingest  *IngestHandler
	Search  *SearchHandler
	Library *LibraryHandler
	Health  *HealthHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", deps.Health.Health)

	api.POST("/ingest", middleware.RateLimit(ingestRateWindow), deps.Ingest.Ingest)
	api.POST("/search", deps.Search.Search)

	api.GET("/library", deps.Library.List)
	api.DELETE("/videos/:id", deps.Library.DeleteVideo)
	api.GET("/videos/:id/transcript", deps.Library.Transcript)
	api.POST("/channels/rename", deps.Library.RenameChannel)
}
