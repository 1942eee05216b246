package application

import (
	"time"

	"github.com/ericfisherdev/overridebot/internal/domain/model"
)

// activityTier classifies a repository by how recently its open pull requests
// were updated. It drives the adaptive poll schedule.
type activityTier int

const (
	// tierHot indicates activity within the last hour. Polls every 2 minutes.
	tierHot activityTier = iota
	// tierActive indicates activity within the last day. Polls every 5 minutes.
	tierActive
	// tierWarm indicates activity within the last 7 days. Polls every 15 minutes.
	tierWarm
	// tierStale indicates no activity for 7+ days. Polls every 30 minutes.
	tierStale
)

// Polling intervals per activity tier.
const (
	intervalHot    = 2 * time.Minute
	intervalActive = 5 * time.Minute
	intervalWarm   = 15 * time.Minute
	intervalStale  = 30 * time.Minute
)

// String returns a human-readable name for the activity tier.
func (t activityTier) String() string {
	switch t {
	case tierHot:
		return "hot"
	case tierActive:
		return "active"
	case tierWarm:
		return "warm"
	case tierStale:
		return "stale"
	default:
		return "unknown"
	}
}

// tierInterval returns the polling interval for the given activity tier.
func tierInterval(tier activityTier) time.Duration {
	switch tier {
	case tierHot:
		return intervalHot
	case tierActive:
		return intervalActive
	case tierWarm:
		return intervalWarm
	case tierStale:
		return intervalStale
	default:
		return intervalActive
	}
}

// classifyActivity determines the activity tier from the time elapsed since
// lastActivity, measured at now. A zero-value time is treated as tierStale.
func classifyActivity(lastActivity, now time.Time) activityTier {
	if lastActivity.IsZero() {
		return tierStale
	}

	elapsed := now.Sub(lastActivity)

	switch {
	case elapsed < 1*time.Hour:
		return tierHot
	case elapsed < 24*time.Hour:
		return tierActive
	case elapsed < 7*24*time.Hour:
		return tierWarm
	default:
		return tierStale
	}
}

// freshestActivity finds the most recent UpdatedAt across the listed change requests.
// Returns the zero time if the slice is empty, which classifies as tierStale.
func freshestActivity(refs []model.ChangeRequestRef) time.Time {
	var newest time.Time
	for _, ref := range refs {
		if ref.UpdatedAt.After(newest) {
			newest = ref.UpdatedAt
		}
	}
	return newest
}
