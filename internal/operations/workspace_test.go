package operations

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/damacus/cos-browser/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newWorkspace returns a workspace rooted in a fresh temp dir plus a sibling dir outside it
func newWorkspace(t *testing.T) (*Workspace, string) {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "workspace")
	outside := filepath.Join(base, "outside")
	require.NoError(t, os.Mkdir(root, 0o700))
	require.NoError(t, os.Mkdir(outside, 0o700))

	ws, err := NewWorkspace(root)
	require.NoError(t, err)
	return ws, outside
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestNewWorkspace_Invalid(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	writeFile(t, file, "x")

	for name, root := range map[string]string{
		"empty":     "  ",
		"missing":   "/does/not/exist",
		"not a dir": file,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewWorkspace(root)
			assert.ErrorIs(t, err, models.ErrInvalidArgument)
		})
	}
}

func TestWorkspace_Resolve(t *testing.T) {
	ws, outside := newWorkspace(t)
	writeFile(t, filepath.Join(ws.Root(), "inside.txt"), "in")
	writeFile(t, filepath.Join(outside, "secret.txt"), "out")
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(ws.Root(), "link.txt")))

	got, err := ws.Resolve("inside.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.Root(), "inside.txt"), got)

	for name, path := range map[string]string{
		"absolute outside": filepath.Join(outside, "secret.txt"),
		"dot-dot escape":   filepath.Join(ws.Root(), "..", "outside", "secret.txt"),
		"symlink escape":   filepath.Join(ws.Root(), "link.txt"),
		"missing":          filepath.Join(ws.Root(), "nope.txt"),
		"root of fs":       "/",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ws.Resolve(path)
			assert.ErrorIs(t, err, models.ErrInvalidArgument)
		})
	}
}

func TestUploadFiles_OutsideWorkspaceRejectedBeforeStarted(t *testing.T) {
	ws, outside := newWorkspace(t)
	secret := filepath.Join(outside, "id_rsa")
	writeFile(t, secret, "HOST-PRIVATE-KEY")
	writeFile(t, filepath.Join(ws.Root(), "ok.txt"), "fine")

	storage := new(MockStorage)
	rec := &recorder{}
	h := newTestHandler(t, storage, WithWorkspace(ws))

	op, err := h.UploadFiles(context.Background(), []string{"ok.txt", secret}, "bucket", "in/", rec)

	assert.Nil(t, op)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "outside the workspace")
	assert.Empty(t, rec.snapshot())
	storage.AssertNotCalled(t, "UploadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadFiles_RelativeToWorkspace(t *testing.T) {
	ws, _ := newWorkspace(t)
	require.NoError(t, os.Mkdir(filepath.Join(ws.Root(), "reports"), 0o700))
	writeFile(t, filepath.Join(ws.Root(), "reports", "q1.pdf"), "pdf")

	storage := new(MockStorage)
	storage.On("UploadFile", mock.Anything, "bucket", "in/q1.pdf", filepath.Join(ws.Root(), "reports", "q1.pdf")).Return(nil)

	op, err := newTestHandler(t, storage, WithWorkspace(ws)).UploadFiles(context.Background(), []string{"reports/q1.pdf"}, "bucket", "in/", &recorder{})
	require.NoError(t, err)

	assert.Equal(t, 1, wait(t, op).Succeeded)
	storage.AssertExpectations(t)
}

func TestDownloadFiles_OutsideWorkspaceRejected(t *testing.T) {
	ws, outside := newWorkspace(t)
	storage := new(MockStorage)
	rec := &recorder{}
	h := newTestHandler(t, storage, WithWorkspace(ws))

	op, err := h.DownloadFiles(context.Background(), []string{"authorized_keys"}, "bucket", outside, rec)

	assert.Nil(t, op)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	assert.Empty(t, rec.snapshot())
	_, statErr := os.Stat(filepath.Join(outside, "authorized_keys"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadFiles_SymlinkedTargetRejected(t *testing.T) {
	ws, outside := newWorkspace(t)
	require.NoError(t, os.Symlink(filepath.Join(outside, "authorized_keys"), filepath.Join(ws.Root(), "authorized_keys")))
	writeFile(t, filepath.Join(outside, "authorized_keys"), "")

	storage := new(MockStorage)
	op, err := newTestHandler(t, storage, WithWorkspace(ws)).DownloadFiles(context.Background(), []string{"keys/authorized_keys"}, "bucket", ws.Root(), &recorder{})

	assert.Nil(t, op)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	storage.AssertNotCalled(t, "DownloadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDownloadFiles_InsideWorkspace(t *testing.T) {
	ws, _ := newWorkspace(t)
	require.NoError(t, os.Mkdir(filepath.Join(ws.Root(), "incoming"), 0o700))

	storage := new(MockStorage)
	storage.On("DownloadFile", mock.Anything, "bucket", "photos/cat.jpg", filepath.Join(ws.Root(), "incoming", "cat.jpg")).Return(nil)

	op, err := newTestHandler(t, storage, WithWorkspace(ws)).DownloadFiles(context.Background(), []string{"photos/cat.jpg"}, "bucket", "incoming", &recorder{})
	require.NoError(t, err)

	assert.Equal(t, 1, wait(t, op).Succeeded)
	storage.AssertExpectations(t)
}
