package utils

import "fmt"

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
)

// FormatSize renders an object size with two decimals, capping the unit at GB
func FormatSize(size int64) string {
	switch {
	case size < 0:
		return "0 B"
	case size < kib:
		return fmt.Sprintf("%d B", size)
	case size < mib:
		return fmt.Sprintf("%.2f KB", float64(size)/kib)
	case size < gib:
		return fmt.Sprintf("%.2f MB", float64(size)/mib)
	default:
		return fmt.Sprintf("%.2f GB", float64(size)/gib)
	}
}

// SearchMessage is the status line shown after a search
func SearchMessage(count int, term string) string {
	if count == 0 {
		return fmt.Sprintf("No files found containing '%s'", term)
	}
	return fmt.Sprintf("Found %d file(s) containing '%s'", count, term)
}
