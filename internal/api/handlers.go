// Package api exposes the index buffer over HTTP.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/document"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/service"
)

const maxBodyBytes = 32 << 20

// Handler serves the /api/v1 routes.
type Handler struct {
	indexes   *service.IndexService
	documents *service.DocumentService
	search    *service.SearchService
	buffer    *service.BufferService
	log       logger.Logger
}

// NewHandler returns a Handler over the given services.
func NewHandler(
	indexes *service.IndexService,
	documents *service.DocumentService,
	search *service.SearchService,
	buffer *service.BufferService,
	log logger.Logger,
) *Handler {
	return &Handler{
		indexes:   indexes,
		documents: documents,
		search:    search,
		buffer:    buffer,
		log:       log,
	}
}

// CreateIndex handles POST /api/v1/indexes.
func (h *Handler) CreateIndex(c *gin.Context) {
	var req domain.CreateIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.indexes.CreateIndex(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, "Failed to create index", err, logger.String("index", req.IndexName))
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.logFor(c).Info("Index created", logger.String("index", req.IndexName))
	}
	c.JSON(status, gin.H{"index": req.IndexName, "created": created})
}

// ListIndexes handles GET /api/v1/indexes.
func (h *Handler) ListIndexes(c *gin.Context) {
	rows, err := h.indexes.ListIndexes(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.fail(c, "Failed to list indexes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexes": rows, "count": len(rows)})
}

// IndexMetadata handles GET /api/v1/indexes/:index/metadata.
func (h *Handler) IndexMetadata(c *gin.Context) {
	index := c.Param("index")
	meta, err := h.indexes.IndexMetadata(c.Request.Context(), index)
	if err != nil {
		h.fail(c, "Failed to get index metadata", err, logger.String("index", index))
		return
	}
	c.JSON(http.StatusOK, meta)
}

// IndexExists handles GET /api/v1/indexes/:index/exists.
func (h *Handler) IndexExists(c *gin.Context) {
	index := c.Param("index")
	exists, err := h.indexes.IndexExists(c.Request.Context(), index)
	if err != nil {
		h.fail(c, "Failed to check index", err, logger.String("index", index))
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": index, "exists": exists})
}

// DeleteIndex handles DELETE /api/v1/indexes/:index.
func (h *Handler) DeleteIndex(c *gin.Context) {
	index := c.Param("index")
	if err := h.indexes.DeleteIndex(c.Request.Context(), index); err != nil {
		h.fail(c, "Failed to delete index", err, logger.String("index", index))
		return
	}
	c.Status(http.StatusNoContent)
}

// PutDocument handles POST /api/v1/indexes/:index/documents?id=.
func (h *Handler) PutDocument(c *gin.Context) {
	index := c.Param("index")
	doc, err := readDocument(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.documents.Put(c.Request.Context(), index, c.Query("id"), doc)
	if err != nil {
		h.fail(c, "Failed to store document", err, logger.String("index", index))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"index": index, "id": id})
}

// BulkDocuments handles POST /api/v1/indexes/:index/documents/bulk. The
// documents are written in one request without buffering.
func (h *Handler) BulkDocuments(c *gin.Context) {
	index := c.Param("index")
	docs, err := readDocuments(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.documents.PutMany(c.Request.Context(), index, docs)
	if err != nil {
		h.fail(c, "Bulk write failed", err, logger.String("index", index))
		return
	}

	status := http.StatusOK
	if result.HasFailures() {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

// GetDocument handles GET /api/v1/indexes/:index/documents/:id.
func (h *Handler) GetDocument(c *gin.Context) {
	index, id := c.Param("index"), c.Param("id")
	hit, err := h.documents.Get(c.Request.Context(), index, id)
	if err != nil {
		h.fail(c, "Failed to get document", err, logger.String("index", index), logger.String("document_id", id))
		return
	}
	c.JSON(http.StatusOK, hit)
}

// UpdateDocument handles PUT /api/v1/indexes/:index/documents/:id.
func (h *Handler) UpdateDocument(c *gin.Context) {
	index, id := c.Param("index"), c.Param("id")
	doc, err := readDocument(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err = h.documents.Update(c.Request.Context(), index, id, doc); err != nil {
		h.fail(c, "Failed to update document", err, logger.String("index", index), logger.String("document_id", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": index, "id": id, "updated": true})
}

// DeleteDocument handles DELETE /api/v1/indexes/:index/documents/:id.
func (h *Handler) DeleteDocument(c *gin.Context) {
	index, id := c.Param("index"), c.Param("id")
	deleted, err := h.documents.Delete(c.Request.Context(), index, id)
	if err != nil {
		h.fail(c, "Failed to delete document", err, logger.String("index", index), logger.String("document_id", id))
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// BufferInsert handles POST /api/v1/indexes/:index/buffer. The body is one
// document or an array of documents.
func (h *Handler) BufferInsert(c *gin.Context) {
	index := c.Param("index")
	docs, err := readDocuments(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := h.buffer.Insert(c.Request.Context(), index, docs...)
	if err != nil {
		h.fail(c, "Failed to buffer documents", err, logger.String("collection", index))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": len(docs), "buffer": status})
}

// BufferFlush handles POST /api/v1/indexes/:index/buffer/flush.
func (h *Handler) BufferFlush(c *gin.Context) {
	index := c.Param("index")
	pending := h.buffer.Status(index).Pending
	if err := h.buffer.Flush(c.Request.Context(), index); err != nil {
		h.fail(c, "Flush failed", err, logger.String("collection", index))
		return
	}
	c.JSON(http.StatusOK, gin.H{"collection": index, "flushed": pending})
}

// BufferStatus handles GET /api/v1/indexes/:index/buffer.
func (h *Handler) BufferStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.buffer.Status(c.Param("index")))
}

// BufferStatuses handles GET /api/v1/buffer.
func (h *Handler) BufferStatuses(c *gin.Context) {
	statuses := h.buffer.Statuses()
	c.JSON(http.StatusOK, gin.H{"collections": statuses, "count": len(statuses)})
}

// BufferFlushAll handles POST /api/v1/buffer/flush.
func (h *Handler) BufferFlushAll(c *gin.Context) {
	if err := h.buffer.FlushAll(c.Request.Context()); err != nil {
		h.fail(c, "Flush failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flushed": true})
}

type thresholdRequest struct {
	Threshold int `binding:"required" json:"threshold"`
}

// SetThreshold handles PUT /api/v1/buffer/threshold.
func (h *Handler) SetThreshold(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.buffer.SetThreshold(req.Threshold); err != nil {
		h.fail(c, "Failed to set threshold", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threshold": req.Threshold})
}

// Search handles GET /api/v1/indexes/:index/search.
func (h *Handler) Search(c *gin.Context) {
	from, err := intQuery(c, "from", domain.DefaultSearchFrom)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	size, err := intQuery(c, "size", domain.DefaultSearchSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := &domain.SearchRequest{
		Index:       c.Param("index"),
		QueryString: c.Query("q"),
		From:        from,
		Size:        size,
		SortField:   c.Query("sort"),
		SortOrder:   c.Query("order"),
	}
	req.Normalize()

	result, err := h.search.Search(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "Search failed", err, logger.String("index", req.Index))
		return
	}
	c.JSON(http.StatusOK, result)
}

// GroupBy handles GET /api/v1/indexes/:index/group-by.
func (h *Handler) GroupBy(c *gin.Context) {
	index := c.Param("index")
	size, err := intQuery(c, "size", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := h.search.GroupBy(c.Request.Context(), index, c.Query("field"), c.Query("q"), size)
	if err != nil {
		h.fail(c, "Group-by failed", err, logger.String("index", index))
		return
	}
	c.JSON(http.StatusOK, gin.H{"field": c.Query("field"), "groups": items})
}

type sqlRequest struct {
	Query     string `binding:"required" json:"query"`
	FetchSize int    `json:"fetch_size"`
}

// SQL handles POST /api/v1/sql.
func (h *Handler) SQL(c *gin.Context) {
	var req sqlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.search.SQL(c.Request.Context(), req.Query, req.FetchSize)
	if err != nil {
		h.fail(c, "SQL query failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return nil, errors.New("request body is empty")
	}
	return body, nil
}

func readDocument(c *gin.Context) (*document.Document, error) {
	body, err := readBody(c)
	if err != nil {
		return nil, err
	}
	return document.Decode(body)
}

// readDocuments accepts a JSON object or an array of objects.
func readDocuments(c *gin.Context) ([]*document.Document, error) {
	body, err := readBody(c)
	if err != nil {
		return nil, err
	}

	if firstNonSpace(body) != '[' {
		doc, decErr := document.Decode(body)
		if decErr != nil {
			return nil, decErr
		}
		return []*document.Document{doc}, nil
	}

	var raws []json.RawMessage
	if err = json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	if len(raws) == 0 {
		return nil, errors.New("no documents")
	}

	docs := make([]*document.Document, 0, len(raws))
	for i, raw := range raws {
		doc, decErr := document.Decode(raw)
		if decErr != nil {
			return nil, fmt.Errorf("document %d: %w", i, decErr)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func firstNonSpace(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return c
	}
	return 0
}
