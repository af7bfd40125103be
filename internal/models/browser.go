// Package models contains the value types shared by the storage core and its shells
package models

import "strings"

// Breadcrumb for navigation
type Breadcrumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Location is the explicit navigation state: a bucket and a folder prefix.
// Methods return new values; a Location is never modified in place.
type Location struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

// Root returns the top level of bucket
func Root(bucket string) Location {
	return Location{Bucket: strings.TrimSpace(bucket)}
}

// At returns the location for bucket and prefix, normalising the prefix to end with "/"
func At(bucket, prefix string) Location {
	return Location{Bucket: strings.TrimSpace(bucket), Prefix: normalisePrefix(prefix)}
}

func normalisePrefix(prefix string) string {
	prefix = strings.TrimLeft(strings.TrimSpace(prefix), "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// IsRoot reports whether the location is the top of its bucket
func (l Location) IsRoot() bool {
	return l.Prefix == ""
}

// Enter descends into a folder name as returned by a listing (e.g. "photos/")
func (l Location) Enter(folder string) Location {
	folder = strings.TrimSpace(folder)
	if folder == "" {
		return l
	}
	return Location{Bucket: l.Bucket, Prefix: normalisePrefix(l.Prefix + folder)}
}

// Parent drops the last folder segment. The parent of the root is the root.
func (l Location) Parent() Location {
	if l.IsRoot() {
		return l
	}
	trimmed := strings.TrimSuffix(l.Prefix, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return Root(l.Bucket)
	}
	return Location{Bucket: l.Bucket, Prefix: trimmed[:idx+1]}
}

// Key returns the full object key for a name relative to this location
func (l Location) Key(name string) string {
	return l.Prefix + name
}

// Breadcrumbs lists each folder from the root down to this location
func (l Location) Breadcrumbs() []Breadcrumb {
	var breadcrumbs []Breadcrumb
	if l.Prefix == "" {
		return breadcrumbs
	}
	path := ""
	for _, part := range strings.Split(strings.TrimSuffix(l.Prefix, "/"), "/") {
		if part == "" {
			continue
		}
		path += part + "/"
		breadcrumbs = append(breadcrumbs, Breadcrumb{Name: part, Path: path})
	}
	return breadcrumbs
}
