package models

import (
	"sort"
	"strings"
	"time"
)

// ImportAction classifies a scanned item against the destination library
type ImportAction string

const (
	// ImportActionImport copies or moves the item into the library
	ImportActionImport ImportAction = "import"
	// ImportActionAlreadyExists means the destination file is already there
	ImportActionAlreadyExists ImportAction = "already_exists"
	// ImportActionAlreadyImported means the dedup history knows this file
	ImportActionAlreadyImported ImportAction = "already_imported"
)

// ImportRecord is the dedup identity of an imported file.
// Two records are the same file when name, modified and size match;
// Imported is informational only.
type ImportRecord struct {
	Name     string    `json:"name"`
	Modified time.Time `json:"modified"`
	Size     int64     `json:"size"`
	Imported time.Time `json:"imported"`
}

// RecordKey is the comparable identity of an ImportRecord
type RecordKey struct {
	Name     string
	Modified int64 // unix seconds
	Size     int64
}

// NewImportRecord builds a record for a file that has not been imported yet
func NewImportRecord(name string, modified time.Time, size int64) ImportRecord {
	return ImportRecord{Name: name, Modified: modified.UTC().Truncate(time.Second), Size: size}
}

// Key returns the identity of the record
func (r ImportRecord) Key() RecordKey {
	return RecordKey{Name: r.Name, Modified: r.Modified.Unix(), Size: r.Size}
}

// RecordSet is a set of ImportRecords keyed by identity
type RecordSet map[RecordKey]ImportRecord

// NewRecordSet creates a set holding the given records
func NewRecordSet(records ...ImportRecord) RecordSet {
	s := make(RecordSet, len(records))
	for _, r := range records {
		s.Add(r)
	}
	return s
}

// Add inserts r and reports whether it was not already present.
// An existing record keeps its original Imported time.
func (s RecordSet) Add(r ImportRecord) bool {
	k := r.Key()
	if _, ok := s[k]; ok {
		return false
	}
	s[k] = r
	return true
}

// Contains reports whether a record with the same identity is in the set
func (s RecordSet) Contains(r ImportRecord) bool {
	_, ok := s[r.Key()]
	return ok
}

// Merge adds every record of other to s
func (s RecordSet) Merge(other RecordSet) {
	for _, r := range other {
		s.Add(r)
	}
}

// Records returns the records ordered by name, then modification time
func (s RecordSet) Records() []ImportRecord {
	out := make([]ImportRecord, 0, len(s))
	for _, r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		if !out[i].Modified.Equal(out[j].Modified) {
			return out[i].Modified.Before(out[j].Modified)
		}
		return out[i].Size < out[j].Size
	})
	return out
}

// ImportAnalysisItem is the classification of one source file (or sidecar)
type ImportAnalysisItem struct {
	// Source is the absolute source path
	Source string

	// Destination is the absolute destination path
	Destination string

	// Action is what the execution engine should do
	Action ImportAction

	// Created is the resolved creation date used for the destination folder
	Created time.Time

	// Record is the dedup identity of the source file
	Record ImportRecord

	// DestinationExisted is true when the destination file was already there
	DestinationExisted bool

	// Folder is the destination parent folder, used for grouping
	Folder string

	// Sidecar marks items that travel with a primary file
	Sidecar bool
}

// ImportGroup holds the analysis items sharing one destination folder
type ImportGroup struct {
	Folder string
	Items  []*ImportAnalysisItem
}

// ImportAnalysis is the import plan grouped by destination folder.
// Folder keys compare case-insensitively.
type ImportAnalysis struct {
	groups map[string]*ImportGroup
}

// NewImportAnalysis creates an empty analysis
func NewImportAnalysis() *ImportAnalysis {
	return &ImportAnalysis{groups: make(map[string]*ImportGroup)}
}

// Add appends item to the group of its destination folder
func (a *ImportAnalysis) Add(item *ImportAnalysisItem) {
	key := strings.ToLower(item.Folder)
	g, ok := a.groups[key]
	if !ok {
		g = &ImportGroup{Folder: item.Folder}
		a.groups[key] = g
	}
	g.Items = append(g.Items, item)
}

// Groups returns the groups ordered case-insensitively by folder
func (a *ImportAnalysis) Groups() []*ImportGroup {
	keys := make([]string, 0, len(a.groups))
	for k := range a.groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*ImportGroup, 0, len(keys))
	for _, k := range keys {
		out = append(out, a.groups[k])
	}
	return out
}

// Items returns all items in group order
func (a *ImportAnalysis) Items() []*ImportAnalysisItem {
	var out []*ImportAnalysisItem
	for _, g := range a.Groups() {
		out = append(out, g.Items...)
	}
	return out
}

// Len returns the total number of items
func (a *ImportAnalysis) Len() int {
	n := 0
	for _, g := range a.groups {
		n += len(g.Items)
	}
	return n
}

// Count returns the number of items with the given action
func (a *ImportAnalysis) Count(action ImportAction) int {
	n := 0
	for _, g := range a.groups {
		for _, it := range g.Items {
			if it.Action == action {
				n++
			}
		}
	}
	return n
}
