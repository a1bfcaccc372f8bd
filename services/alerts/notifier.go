package alerts

import (
	"context"
	"time"

	"github.com/trustwork/discovery/logger"
)

const KindNewMatch = "new_match"

// Notification is one delta record handed to the delivery channel.
type Notification struct {
	OwnerID       string    `json:"owner_id"`
	SavedSearchID string    `json:"saved_search_id"`
	Kind          string    `json:"kind"`
	Refs          []string  `json:"refs"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notifier is the delivery channel interface (email, push, in-app). The
// engine only emits; delivery is owned elsewhere.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// LogNotifier writes notifications to the log. It is the default wiring
// until a real delivery channel is attached.
type LogNotifier struct {
	Logger logger.Logger
}

func (n *LogNotifier) Notify(_ context.Context, notification Notification) error {
	n.Logger.Info("notification emitted",
		"owner_id", notification.OwnerID,
		"saved_search_id", notification.SavedSearchID,
		"kind", notification.Kind,
		"refs", notification.Refs)
	return nil
}
