package sync

import (
	"time"

	"github.com/sdejongh/mediasync/pkg/models"
)

// Decide returns the action for one relative path. It depends only on
// which sides exist, how their modification times compare and the policy.
// A stale copy is never deleted implicitly.
func Decide(localExists, remoteExists bool, localMod, remoteMod time.Time, policy models.SyncPolicy) models.SyncAction {
	switch {
	case localExists && remoteExists:
		switch {
		case models.SameModTime(localMod, remoteMod):
			return models.SyncNone
		case localMod.After(remoteMod):
			if policy.LocalToRemote {
				return models.SyncCopyRemote
			}
		default:
			if policy.RemoteToLocal {
				return models.SyncCopyLocal
			}
		}
		return models.SyncNone

	case localExists:
		if policy.LocalToRemote {
			return models.SyncCopyRemote
		}
		if policy.RemoteToLocal && policy.DeleteLocal {
			return models.SyncDeleteLocal
		}
		return models.SyncNone

	case remoteExists:
		if policy.RemoteToLocal {
			return models.SyncCopyLocal
		}
		if policy.LocalToRemote && policy.DeleteRemote {
			return models.SyncDeleteRemote
		}
		return models.SyncNone
	}

	return models.SyncNone
}

// decideItem assigns the action of an analysed item
func decideItem(item *models.SyncAnalysisItem, policy models.SyncPolicy) {
	var localMod, remoteMod time.Time
	if item.Local != nil {
		localMod = item.Local.Modified
	}
	if item.Remote != nil {
		remoteMod = item.Remote.Modified
	}
	item.Action = Decide(item.Local != nil, item.Remote != nil, localMod, remoteMod, policy)
}
