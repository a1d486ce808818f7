package models

import (
	"path/filepath"
	"sort"
	"time"
)

// SyncAction is the reconciliation outcome for one relative path
type SyncAction string

const (
	// SyncNone leaves both sides untouched
	SyncNone SyncAction = "none"
	// SyncCopyLocal copies the remote file over the local side
	SyncCopyLocal SyncAction = "copy_local"
	// SyncCopyRemote copies the local file over the remote side
	SyncCopyRemote SyncAction = "copy_remote"
	// SyncDeleteLocal deletes the local file
	SyncDeleteLocal SyncAction = "delete_local"
	// SyncDeleteRemote deletes the remote file
	SyncDeleteRemote SyncAction = "delete_remote"
)

// SyncPolicy holds the four direction/delete flags of a sync job
type SyncPolicy struct {
	LocalToRemote bool `yaml:"local_to_remote"`
	RemoteToLocal bool `yaml:"remote_to_local"`
	DeleteLocal   bool `yaml:"delete_local"`
	DeleteRemote  bool `yaml:"delete_remote"`
}

// SyncSide is what one side of a sync observed for a path
type SyncSide struct {
	Path     string
	Size     int64
	Modified time.Time
}

// SyncAnalysisItem is the merged local/remote view of one relative path
type SyncAnalysisItem struct {
	// RelativePath is the forward-slash join key
	RelativePath string

	// Local is nil when the file does not exist locally
	Local *SyncSide

	// Remote is nil when the file does not exist remotely
	Remote *SyncSide

	// LocalRoot is the local root this path belongs to
	LocalRoot string

	// RemoteRoot is the remote root
	RemoteRoot string

	Action SyncAction
}

// LocalPath returns the local absolute path, derived from the root when the
// file does not exist locally yet
func (i *SyncAnalysisItem) LocalPath() string {
	if i.Local != nil {
		return i.Local.Path
	}
	return filepath.Join(i.LocalRoot, filepath.FromSlash(i.RelativePath))
}

// RemotePath returns the remote absolute path
func (i *SyncAnalysisItem) RemotePath() string {
	if i.Remote != nil {
		return i.Remote.Path
	}
	return filepath.Join(i.RemoteRoot, filepath.FromSlash(i.RelativePath))
}

// SyncPlan maps relative paths to their analysis
type SyncPlan map[string]*SyncAnalysisItem

// Sorted returns the items ordered by relative path
func (p SyncPlan) Sorted() []*SyncAnalysisItem {
	out := make([]*SyncAnalysisItem, 0, len(p))
	for _, it := range p {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	return out
}

// Count returns the number of items with the given action
func (p SyncPlan) Count(action SyncAction) int {
	n := 0
	for _, it := range p {
		if it.Action == action {
			n++
		}
	}
	return n
}
