package models

import (
	"encoding/json"
	"time"

	"github.com/damacus/cos-browser/internal/utils"
)

// ItemKind distinguishes objects from inferred folders
type ItemKind int

const (
	KindFile ItemKind = iota
	KindFolder
)

func (k ItemKind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "file"
}

// FileItem is one row of a listing or search result
type FileItem struct {
	name         string
	kind         ItemKind
	size         int64
	lastModified *time.Time
}

// NewFileItem validates the name and copies the timestamp.
// Folders always carry size 0 and no timestamp.
func NewFileItem(name string, kind ItemKind, size int64, lastModified *time.Time) (FileItem, error) {
	if name == "" {
		return FileItem{}, invalid("name cannot be empty")
	}
	if kind != KindFile && kind != KindFolder {
		return FileItem{}, invalid("unknown item kind")
	}
	item := FileItem{name: name, kind: kind}
	if kind == KindFile {
		item.size = size
		if lastModified != nil {
			t := *lastModified
			item.lastModified = &t
		}
	}
	return item, nil
}

// NewFolderItem builds a folder entry from a relative common prefix
func NewFolderItem(name string) (FileItem, error) {
	return NewFileItem(name, KindFolder, 0, nil)
}

// NewFileEntry builds a file entry. A zero modTime means unknown.
func NewFileEntry(name string, size int64, modTime time.Time) (FileItem, error) {
	if modTime.IsZero() {
		return NewFileItem(name, KindFile, size, nil)
	}
	return NewFileItem(name, KindFile, size, &modTime)
}

func (f FileItem) Name() string { return f.name }

func (f FileItem) Kind() ItemKind { return f.kind }

func (f FileItem) Size() int64 { return f.size }

func (f FileItem) IsFile() bool { return f.kind == KindFile }

func (f FileItem) IsFolder() bool { return f.kind == KindFolder }

// LastModified returns a copy of the timestamp, if known
func (f FileItem) LastModified() (time.Time, bool) {
	if f.lastModified == nil {
		return time.Time{}, false
	}
	return *f.lastModified, true
}

// Equal reports value equality
func (f FileItem) Equal(o FileItem) bool {
	if f.name != o.name || f.kind != o.kind || f.size != o.size {
		return false
	}
	a, okA := f.LastModified()
	b, okB := o.LastModified()
	return okA == okB && a.Equal(b)
}

type fileItemJSON struct {
	Name          string     `json:"name"`
	Kind          string     `json:"kind"`
	Size          int64      `json:"size"`
	FormattedSize string     `json:"formattedSize,omitempty"`
	LastModified  *time.Time `json:"lastModified,omitempty"`
}

func (f FileItem) MarshalJSON() ([]byte, error) {
	out := fileItemJSON{
		Name:         f.name,
		Kind:         f.kind.String(),
		Size:         f.size,
		LastModified: f.lastModified,
	}
	if f.IsFile() {
		out.FormattedSize = utils.FormatSize(f.size)
	}
	return json.Marshal(out)
}
