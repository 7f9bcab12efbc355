package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/packtrack/internal/domain/models"
	"github.com/mamadbah2/packtrack/internal/service/audit"
)

// AuditHandler exposes the audit log read side.
type AuditHandler struct {
	svc    *audit.Service
	logger *zap.Logger
}

// NewAuditHandler constructs the HTTP handler adapter.
func NewAuditHandler(svc *audit.Service, logger *zap.Logger) *AuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditHandler{svc: svc, logger: logger}
}

// List pages audit entries, newest first.
func (h *AuditHandler) List(c *gin.Context) {
	result, err := h.svc.ListEntries(c.Request.Context(), queryInt(c, "limit"), queryInt(c, "offset"))
	if err != nil {
		h.logger.Error("failed listing audit entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list audit entries"})
		return
	}

	c.JSON(http.StatusOK, result)
}
