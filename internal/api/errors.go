package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/buffer"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/database"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/service"
)

// statusFor maps service and backend errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, elasticsearch.ErrIndexNotFound),
		errors.Is(err, elasticsearch.ErrDocumentNotFound),
		errors.Is(err, database.ErrIndexMetadataNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRegistryDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, buffer.ErrFlushFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// logFor returns the request-scoped logger set by the server middleware,
// falling back to the handler logger.
func (h *Handler) logFor(c *gin.Context) logger.Logger {
	return logger.FromContextOr(c.Request.Context(), h.log)
}

// fail logs err and writes the mapped error response. Client errors are
// logged at Warn, the rest at Error.
func (h *Handler) fail(c *gin.Context, msg string, err error, fields ...logger.Field) {
	status := statusFor(err)
	fields = append(fields, logger.Error(err), logger.Int("status", status))
	log := h.logFor(c)
	if status < http.StatusInternalServerError {
		log.Warn(msg, fields...)
	} else {
		log.Error(msg, fields...)
	}

	body := gin.H{"error": err.Error()}
	var fe *buffer.FlushError
	if errors.As(err, &fe) {
		body["collection"] = fe.Collection
		body["size"] = fe.Size
		if failures := fe.GetFailures(); len(failures) > 0 {
			body["failures"] = failures
		}
	}
	c.JSON(status, body)
}
