package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/packtrack/internal/domain/models"
	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
	"github.com/mamadbah2/packtrack/internal/service/packaging"
)

// PackagingHandler exposes the packaging record lifecycle over HTTP.
type PackagingHandler struct {
	svc    *packaging.Service
	logger *zap.Logger
}

// NewPackagingHandler constructs the HTTP handler adapter.
func NewPackagingHandler(svc *packaging.Service, logger *zap.Logger) *PackagingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PackagingHandler{svc: svc, logger: logger}
}

// Create records a packaging event.
func (h *PackagingHandler) Create(c *gin.Context) {
	var req models.CreatePackagingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Update edits the waybill number or replaces the item list of a record.
// Stock is deliberately left alone.
func (h *PackagingHandler) Update(c *gin.Context) {
	var req models.UpdatePackagingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Delete removes a record, restoring stock unless the payload opts out. The
// body is optional; without one the service rejects the missing user id.
func (h *PackagingHandler) Delete(c *gin.Context) {
	var req models.DeletePackagingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid delete payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := h.svc.Delete(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// List pages packaging records, newest first.
func (h *PackagingHandler) List(c *gin.Context) {
	result, err := h.svc.ListRecords(c.Request.Context(), queryInt(c, "limit"), queryInt(c, "offset"))
	if err != nil {
		h.logger.Error("failed listing packaging records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list packaging records"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get returns one record with its items.
func (h *PackagingHandler) Get(c *gin.Context) {
	result, err := h.svc.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, rowstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "packaging record not found"})
			return
		}
		h.logger.Error("failed fetching packaging record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to fetch packaging record"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// respondError maps service errors onto the error envelope. Validation
// failures are the client's fault; everything else is a server fault.
func (h *PackagingHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, packaging.ErrInvalidRequest) {
		status = http.StatusBadRequest
	}

	resp := models.ErrorResponse{Error: err.Error()}
	var opErr *packaging.OperationError
	if errors.As(err, &opErr) {
		resp.Error = opErr.Err.Error()
		resp.Context = opErr.Trace.Describe()
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("packaging operation failed", zap.Error(err))
	}
	c.JSON(status, resp)
}

func queryInt(c *gin.Context, name string) int {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
