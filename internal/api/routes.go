package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers the API under /api/v1 and, when metrics is not nil,
// the Prometheus endpoint at /metrics.
func SetupRoutes(router *gin.Engine, h *Handler, metrics http.Handler) {
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := router.Group("/api/v1")

	indexes := v1.Group("/indexes")
	indexes.POST("", h.CreateIndex)
	indexes.GET("", h.ListIndexes)
	indexes.GET("/:index/exists", h.IndexExists)
	indexes.GET("/:index/metadata", h.IndexMetadata)
	indexes.DELETE("/:index", h.DeleteIndex)

	indexes.POST("/:index/documents", h.PutDocument)
	indexes.POST("/:index/documents/bulk", h.BulkDocuments)
	indexes.GET("/:index/documents/:id", h.GetDocument)
	indexes.PUT("/:index/documents/:id", h.UpdateDocument)
	indexes.DELETE("/:index/documents/:id", h.DeleteDocument)

	indexes.POST("/:index/buffer", h.BufferInsert)
	indexes.POST("/:index/buffer/flush", h.BufferFlush)
	indexes.GET("/:index/buffer", h.BufferStatus)

	indexes.GET("/:index/search", h.Search)
	indexes.GET("/:index/group-by", h.GroupBy)

	buf := v1.Group("/buffer")
	buf.GET("", h.BufferStatuses)
	buf.POST("/flush", h.BufferFlushAll)
	buf.PUT("/threshold", h.SetThreshold)

	v1.POST("/sql", h.SQL)
}
