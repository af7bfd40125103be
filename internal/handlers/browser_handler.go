package handlers

import (
	"context"
	"net/http"

	"github.com/damacus/cos-browser/internal/models"
	"github.com/damacus/cos-browser/internal/operations"
	"github.com/damacus/cos-browser/internal/services"
	"github.com/damacus/cos-browser/internal/utils"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// BrowserHandler serves listing, search and batch transfer requests
type BrowserHandler struct {
	registry *operations.Registry
	// nil turns host file transfers off
	workspace *operations.Workspace
	log       zerolog.Logger
	// batches outlive the request that started them
	baseCtx context.Context
}

func NewBrowserHandler(baseCtx context.Context, registry *operations.Registry, workspace *operations.Workspace, log zerolog.Logger) *BrowserHandler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &BrowserHandler{registry: registry, workspace: workspace, log: log, baseCtx: baseCtx}
}

func (h *BrowserHandler) storage(c echo.Context) (*services.CloudStorageService, error) {
	client, err := GetClient(c)
	if err != nil {
		return nil, err
	}
	return services.NewCloudStorageService(client, services.WithLogger(h.log))
}

func (h *BrowserHandler) batches(c echo.Context) (*operations.Handler, error) {
	svc, err := h.storage(c)
	if err != nil {
		return nil, err
	}
	return operations.NewHandler(svc,
		operations.WithRegistry(h.registry),
		operations.WithWorkspace(h.workspace),
		operations.WithLogger(h.log),
	)
}

var errTransfersDisabled = echo.NewHTTPError(http.StatusForbidden, "file transfers are disabled: COS_WORKSPACE_DIR is not set")

type bucketsResponse struct {
	Buckets []string `json:"buckets"`
}

// ListBuckets returns every bucket visible to the session
func (h *BrowserHandler) ListBuckets(c echo.Context) error {
	svc, err := h.storage(c)
	if err != nil {
		return respondError(c, err)
	}

	buckets, err := svc.ListBuckets(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, bucketsResponse{Buckets: buckets})
}

type listingResponse struct {
	Location    models.Location     `json:"location"`
	Breadcrumbs []models.Breadcrumb `json:"breadcrumbs"`
	Parent      *models.Location    `json:"parent,omitempty"`
	Items       []models.FileItem   `json:"items"`
}

// ListObjects lists one folder level of a bucket
func (h *BrowserHandler) ListObjects(c echo.Context) error {
	svc, err := h.storage(c)
	if err != nil {
		return respondError(c, err)
	}

	loc := models.At(c.Param("bucket"), c.QueryParam("prefix"))
	items, err := svc.ListLocation(c.Request().Context(), loc)
	if err != nil {
		return respondError(c, err)
	}

	resp := listingResponse{
		Location:    loc,
		Breadcrumbs: loc.Breadcrumbs(),
		Items:       items,
	}
	if resp.Breadcrumbs == nil {
		resp.Breadcrumbs = []models.Breadcrumb{}
	}
	if !loc.IsRoot() {
		parent := loc.Parent()
		resp.Parent = &parent
	}
	return c.JSON(http.StatusOK, resp)
}

type searchResponse struct {
	Term    string            `json:"term"`
	Items   []models.FileItem `json:"items"`
	Message string            `json:"message"`
}

// Search walks the whole bucket for keys containing q
func (h *BrowserHandler) Search(c echo.Context) error {
	svc, err := h.storage(c)
	if err != nil {
		return respondError(c, err)
	}

	term := c.QueryParam("q")
	items, err := svc.SearchObjectsRecursively(c.Request().Context(), c.Param("bucket"), term)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, searchResponse{Term: term, Items: items, Message: utils.SearchMessage(len(items), term)})
}

type uploadRequest struct {
	Paths  []string `json:"paths"`
	Prefix string   `json:"prefix"`
}

type downloadRequest struct {
	Keys      []string `json:"keys"`
	TargetDir string   `json:"targetDir"`
}

type deleteRequest struct {
	Keys []string `json:"keys"`
}

type acceptedResponse struct {
	ID    string           `json:"id"`
	State operations.State `json:"state"`
}

func (h *BrowserHandler) accepted(c echo.Context, op *operations.Operation) error {
	return c.JSON(http.StatusAccepted, acceptedResponse{ID: op.ID, State: op.State()})
}

// logListener mirrors batch events into the server log; the operation itself keeps them for polling
func (h *BrowserHandler) logListener() operations.Listener {
	return operations.ListenerFuncs{
		Progress: func(msg string) { h.log.Debug().Msg(msg) },
		Failed:   func(msg string) { h.log.Warn().Msg(msg) },
	}
}

// Upload starts a batch uploading files from the server's workspace
func (h *BrowserHandler) Upload(c echo.Context) error {
	var req uploadRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, echo.NewHTTPError(http.StatusBadRequest, "invalid upload request"))
	}
	if h.workspace == nil {
		return respondError(c, errTransfersDisabled)
	}
	ops, err := h.batches(c)
	if err != nil {
		return respondError(c, err)
	}

	prefix := models.At(c.Param("bucket"), req.Prefix).Prefix
	op, err := ops.UploadFiles(h.baseCtx, req.Paths, c.Param("bucket"), prefix, h.logListener())
	if err != nil {
		return respondError(c, err)
	}
	return h.accepted(c, op)
}

// Download starts a batch writing objects into a workspace directory
func (h *BrowserHandler) Download(c echo.Context) error {
	var req downloadRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, echo.NewHTTPError(http.StatusBadRequest, "invalid download request"))
	}
	if h.workspace == nil {
		return respondError(c, errTransfersDisabled)
	}
	ops, err := h.batches(c)
	if err != nil {
		return respondError(c, err)
	}

	op, err := ops.DownloadFiles(h.baseCtx, req.Keys, c.Param("bucket"), req.TargetDir, h.logListener())
	if err != nil {
		return respondError(c, err)
	}
	return h.accepted(c, op)
}

// Delete starts a batch removing keys
func (h *BrowserHandler) Delete(c echo.Context) error {
	var req deleteRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, echo.NewHTTPError(http.StatusBadRequest, "invalid delete request"))
	}
	ops, err := h.batches(c)
	if err != nil {
		return respondError(c, err)
	}

	op, err := ops.DeleteFiles(h.baseCtx, req.Keys, c.Param("bucket"), h.logListener())
	if err != nil {
		return respondError(c, err)
	}
	return h.accepted(c, op)
}
