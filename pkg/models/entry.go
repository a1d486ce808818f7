package models

import (
	"path/filepath"
	"time"
)

// ScannedItem is one file observed by the source walker during an import pass
type ScannedItem struct {
	// Name is the base file name
	Name string

	// Folder is the absolute path of the containing folder
	Folder string

	// Size in bytes
	Size int64

	// Modified is the file modification time
	Modified time.Time

	// Metadata is optional; nil when nothing was extracted
	Metadata *Metadata
}

// Path returns the absolute path of the item
func (s ScannedItem) Path() string {
	return filepath.Join(s.Folder, s.Name)
}

// Created returns the best known creation date of the item.
// Metadata wins over the file modification time.
func (s ScannedItem) Created() time.Time {
	if s.Metadata != nil && !s.Metadata.Created.IsZero() {
		return s.Metadata.Created
	}
	return s.Modified
}

// Metadata holds the fields extracted from a media file that the import cares about
type Metadata struct {
	// Created is the capture/creation date, zero if unknown
	Created time.Time

	// Camera is the camera model, empty if unknown
	Camera string

	// Sidecars are file names in the same folder that travel with this item
	Sidecars []string
}
