// Package notify abstracts the per-player messaging channel. The service
// layer treats delivery as fire-and-forget: a failed send never rolls back
// a state transition.
package notify

import (
	"context"
	"log"

	"github.com/yodateam/faceit-backend/internal/domain"
)

// Notifier delivers direct messages to players and lets later stages edit
// earlier ones in place.
type Notifier interface {
	Send(ctx context.Context, playerID int64, text string) (domain.MessageRef, error)
	Edit(ctx context.Context, playerID int64, ref domain.MessageRef, text string) error
}

// LogNotifier writes every notification to the process log. It is the
// default sink until a real messenger transport is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(_ context.Context, playerID int64, text string) (domain.MessageRef, error) {
	log.Printf("NOTIFY [player %d] %s", playerID, text)
	return "", nil
}

func (n *LogNotifier) Edit(_ context.Context, playerID int64, _ domain.MessageRef, text string) error {
	log.Printf("NOTIFY [player %d] (edit) %s", playerID, text)
	return nil
}
