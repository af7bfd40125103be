package operations

import (
	"os"
	"path/filepath"
	"strings"
)

// Workspace confines the local side of transfers to one directory tree.
// Paths are compared after resolving symlinks.
type Workspace struct {
	root string
}

// NewWorkspace resolves root, which must be an existing directory
func NewWorkspace(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, invalid("workspace directory cannot be empty")
	}
	resolved, err := resolve(root)
	if err != nil {
		return nil, invalid("workspace directory must exist: " + root)
	}
	if info, err := os.Stat(resolved); err != nil || !info.IsDir() {
		return nil, invalid("workspace directory must be a directory: " + root)
	}
	return &Workspace{root: resolved}, nil
}

// Root is the resolved workspace directory
func (w *Workspace) Root() string {
	return w.root
}

// Resolve returns the symlink-free absolute form of an existing path.
// Relative paths are taken relative to the root.
func (w *Workspace) Resolve(path string) (string, error) {
	if path == "" {
		return "", invalid("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.root, path)
	}
	resolved, err := resolve(path)
	if err != nil {
		return "", invalid("path must exist inside the workspace: " + path)
	}
	if !w.contains(resolved) {
		return "", invalid("path is outside the workspace: " + path)
	}
	return resolved, nil
}

// checkTarget allows a download target that does not exist yet, or one
// that still resolves inside the root.
func (w *Workspace) checkTarget(target string) error {
	if _, err := os.Lstat(target); os.IsNotExist(err) {
		return nil
	}
	_, err := w.Resolve(target)
	return err
}

func (w *Workspace) contains(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
