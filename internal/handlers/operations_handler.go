package handlers

import (
	"net/http"

	"github.com/damacus/cos-browser/internal/operations"
	"github.com/labstack/echo/v4"
)

type OperationsHandler struct {
	registry *operations.Registry
}

func NewOperationsHandler(registry *operations.Registry) *OperationsHandler {
	return &OperationsHandler{registry: registry}
}

// GetOperation reports the state, events and result of one batch
func (h *OperationsHandler) GetOperation(c echo.Context) error {
	op, ok := h.registry.Get(c.Param("id"))
	if !ok {
		return respondError(c, echo.NewHTTPError(http.StatusNotFound, "operation not found"))
	}
	return c.JSON(http.StatusOK, op.Snapshot())
}

type operationsResponse struct {
	Operations []operations.Snapshot `json:"operations"`
}

// ListOperations reports every tracked batch, oldest first
func (h *OperationsHandler) ListOperations(c echo.Context) error {
	resp := operationsResponse{Operations: []operations.Snapshot{}}
	for _, op := range h.registry.List() {
		resp.Operations = append(resp.Operations, op.Snapshot())
	}
	return c.JSON(http.StatusOK, resp)
}
