// Package operations runs upload, download and delete batches in the
// background and reports their lifecycle to a Listener.
package operations

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/damacus/cos-browser/internal/models"
	"github.com/damacus/cos-browser/internal/services"
	"github.com/rs/zerolog"
)

// Storage is the part of services.CloudStorageService a batch needs
type Storage interface {
	UploadFile(ctx context.Context, bucketName, key, localPath string) error
	DownloadFile(ctx context.Context, bucketName, key, targetPath string) error
	DeleteObject(ctx context.Context, bucketName, key string) error
}

// Dispatcher runs a listener callback. A UI consumer passes its own
// thread poster; the default runs the callback on the caller.
type Dispatcher func(func())

// Inline is the default Dispatcher
func Inline(fn func()) { fn() }

// Handler starts batch operations against a Storage
type Handler struct {
	storage   Storage
	dispatch  Dispatcher
	registry  *Registry
	workspace *Workspace
	log       zerolog.Logger
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithDispatcher runs listener callbacks through d instead of Inline
func WithDispatcher(d Dispatcher) HandlerOption {
	return func(h *Handler) {
		if d != nil {
			h.dispatch = d
		}
	}
}

// WithRegistry records every started operation in r
func WithRegistry(r *Registry) HandlerOption {
	return func(h *Handler) {
		h.registry = r
	}
}

// WithWorkspace rejects local paths that resolve outside w
func WithWorkspace(w *Workspace) HandlerOption {
	return func(h *Handler) {
		h.workspace = w
	}
}

// WithLogger sets the logger for operation lifecycle entries
func WithLogger(log zerolog.Logger) HandlerOption {
	return func(h *Handler) {
		h.log = log
	}
}

// NewHandler returns a Handler running batches against storage
func NewHandler(storage Storage, opts ...HandlerOption) (*Handler, error) {
	if storage == nil {
		return nil, errors.New("storage service cannot be nil")
	}
	h := &Handler{storage: storage, dispatch: Inline, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", models.ErrInvalidArgument, msg)
}

func validateBatch(items []string, bucket string, l Listener) error {
	if len(items) == 0 {
		return invalid("no items selected")
	}
	if strings.TrimSpace(bucket) == "" {
		return invalid("bucket name cannot be empty")
	}
	if l == nil {
		return invalid("listener cannot be nil")
	}
	return nil
}

// UploadFiles uploads each local path to prefix + basename
func (h *Handler) UploadFiles(ctx context.Context, paths []string, bucket, prefix string, l Listener) (*Operation, error) {
	if err := validateBatch(paths, bucket, l); err != nil {
		return nil, err
	}
	paths = append([]string(nil), paths...)
	local := paths
	if h.workspace != nil {
		local = make([]string, len(paths))
		for i, path := range paths {
			resolved, err := h.workspace.Resolve(path)
			if err != nil {
				return nil, err
			}
			local[i] = resolved
		}
	}
	return h.run(ctx, batch{
		kind:   KindUpload,
		bucket: bucket,
		items:  paths,
		name:   filepath.Base,
		do: func(ctx context.Context, i int, path string) error {
			return h.storage.UploadFile(ctx, bucket, prefix+filepath.Base(path), local[i])
		},
	}, l), nil
}

// DownloadFiles downloads each key into targetDir/basename
func (h *Handler) DownloadFiles(ctx context.Context, keys []string, bucket, targetDir string, l Listener) (*Operation, error) {
	if err := validateBatch(keys, bucket, l); err != nil {
		return nil, err
	}
	if targetDir == "" {
		return nil, invalid("target directory cannot be empty")
	}
	if h.workspace != nil {
		resolved, err := h.workspace.Resolve(targetDir)
		if err != nil {
			return nil, err
		}
		targetDir = resolved
	}
	if info, err := os.Stat(targetDir); err != nil || !info.IsDir() {
		return nil, invalid("target directory must exist: " + targetDir)
	}
	for _, key := range keys {
		switch name := services.Basename(key); name {
		case ".", "..":
			return nil, invalid("unsafe file name in key: " + key)
		default:
			if h.workspace != nil {
				if err := h.workspace.checkTarget(filepath.Join(targetDir, name)); err != nil {
					return nil, err
				}
			}
		}
	}
	keys = append([]string(nil), keys...)
	return h.run(ctx, batch{
		kind:   KindDownload,
		bucket: bucket,
		items:  keys,
		name:   services.Basename,
		do: func(ctx context.Context, _ int, key string) error {
			return h.storage.DownloadFile(ctx, bucket, key, filepath.Join(targetDir, services.Basename(key)))
		},
	}, l), nil
}

// DeleteFiles deletes each key
func (h *Handler) DeleteFiles(ctx context.Context, keys []string, bucket string, l Listener) (*Operation, error) {
	if err := validateBatch(keys, bucket, l); err != nil {
		return nil, err
	}
	keys = append([]string(nil), keys...)
	return h.run(ctx, batch{
		kind:   KindDelete,
		bucket: bucket,
		items:  keys,
		name:   deleteName,
		do: func(ctx context.Context, _ int, key string) error {
			return h.storage.DeleteObject(ctx, bucket, key)
		},
	}, l), nil
}

// deleteName falls back to the whole key for folder markers
func deleteName(key string) string {
	if name := services.Basename(key); name != "" {
		return name
	}
	return key
}

type batch struct {
	kind   Kind
	bucket string
	items  []string
	name   func(item string) string
	do     func(ctx context.Context, i int, item string) error
}

func (h *Handler) run(ctx context.Context, b batch, l Listener) *Operation {
	op := newOperation(b.kind, b.bucket, len(b.items))
	log := h.log.With().Str("operation_id", op.ID).Str("kind", string(b.kind)).Str("bucket", b.bucket).Logger()

	if h.registry != nil {
		h.registry.Add(op)
	}

	msg := startedMessage(b.kind, len(b.items), b.name(b.items[0]))
	if _, err := op.start(msg); err == nil {
		h.dispatch(func() { l.OnStarted(msg) })
	}
	log.Info().Int("items", len(b.items)).Msg("operation started")

	go func() {
		total := len(b.items)
		for i, item := range b.items {
			name := b.name(item)

			err := ctx.Err()
			if err == nil {
				h.emitProgress(op, l, fmt.Sprintf("%s %s... (%d/%d)", progressVerb(b.kind), name, i+1, total))
				err = b.do(ctx, i, item)
			}
			if err != nil {
				op.fail(item, err)
				log.Warn().Err(err).Str("item", item).Msg("item failed")
				h.emitProgress(op, l, fmt.Sprintf("Failed to %s %s: %v", b.kind, name, err))
				continue
			}
			op.succeed()
		}

		res := op.Result()
		state, msg := terminalMessage(b.kind, res.Succeeded, total, b.name(b.items[0]))
		if _, err := op.finish(state, msg); err != nil {
			log.Error().Err(err).Msg("operation already finished")
			return
		}
		if state == StateFailed {
			h.dispatch(func() { l.OnFailed(msg) })
		} else {
			h.dispatch(func() { l.OnCompleted(msg) })
		}
		op.release()
		log.Info().Int("succeeded", res.Succeeded).Int("failed", len(res.Failures)).Str("state", state.String()).Msg("operation finished")
	}()

	return op
}

func (h *Handler) emitProgress(op *Operation, l Listener, msg string) {
	if _, err := op.progress(msg); err != nil {
		return
	}
	h.dispatch(func() { l.OnProgress(msg) })
}

func progressVerb(kind Kind) string {
	switch kind {
	case KindUpload:
		return "Uploading"
	case KindDownload:
		return "Downloading"
	default:
		return "Deleting"
	}
}

func startedMessage(kind Kind, n int, first string) string {
	switch kind {
	case KindUpload:
		if n == 1 {
			return "Uploading " + first + "..."
		}
		return fmt.Sprintf("Uploading %d files...", n)
	case KindDownload:
		if n == 1 {
			return "Downloading file..."
		}
		return fmt.Sprintf("Downloading %d files...", n)
	default:
		if n == 1 {
			return "Deleting item..."
		}
		return fmt.Sprintf("Deleting %d items...", n)
	}
}

// terminalMessage classifies the outcome. Any success at all is a completion.
func terminalMessage(kind Kind, succeeded, total int, first string) (State, string) {
	switch kind {
	case KindUpload:
		switch {
		case succeeded == 0:
			return StateFailed, "Upload failed for all files"
		case succeeded == total && total == 1:
			return StateCompleted, "Upload completed: " + first
		case succeeded == total:
			return StateCompleted, fmt.Sprintf("Uploaded %d files successfully", total)
		}
		return StateCompleted, fmt.Sprintf("Uploaded %d of %d files", succeeded, total)
	case KindDownload:
		switch {
		case succeeded == 0:
			return StateFailed, "Download failed for all files"
		case succeeded == total && total == 1:
			return StateCompleted, "Download completed"
		case succeeded == total:
			return StateCompleted, fmt.Sprintf("Downloaded %d files successfully", total)
		}
		return StateCompleted, fmt.Sprintf("Downloaded %d of %d files", succeeded, total)
	default:
		switch {
		case succeeded == 0:
			return StateFailed, "Delete failed for all items"
		case succeeded == total && total == 1:
			return StateCompleted, "Delete completed"
		case succeeded == total:
			return StateCompleted, fmt.Sprintf("Deleted %d items successfully", total)
		}
		return StateCompleted, fmt.Sprintf("Deleted %d of %d items", succeeded, total)
	}
}
