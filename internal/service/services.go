package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yodateam/faceit-backend/internal/config"
	"github.com/yodateam/faceit-backend/internal/domain"
	"github.com/yodateam/faceit-backend/internal/events"
	"github.com/yodateam/faceit-backend/internal/notify"
	"github.com/yodateam/faceit-backend/internal/repository"
	"github.com/yodateam/faceit-backend/internal/scheduler"
)

type Services struct {
	Lobby      *LobbyService
	Accept     *AcceptService
	Draft      *DraftService
	Settlement *SettlementService
	Profile    *ProfileService
}

func NewServices(
	repos *repository.Repositories,
	cfg *config.Config,
	notifier notify.Notifier,
	sched scheduler.Scheduler,
	publisher events.Publisher,
) *Services {
	// One lock space for everything: accept, draft and settlement must
	// contend on the same match keys.
	locks := newKeyMutex()

	lobby := NewLobbyService(repos.Player, repos.State, locks, publisher)
	draft := NewDraftService(repos.Match, repos.State, locks, notifier, sched, publisher, cfg)
	accept := NewAcceptService(repos.Player, repos.Match, repos.State, locks, notifier, sched, publisher, cfg, lobby, draft)
	settlement := NewSettlementService(repos.Player, repos.Match, repos.State, locks, notifier, publisher, cfg)
	profile := NewProfileService(repos.Player)

	lobby.onFull = accept.OnLobbyFull

	return &Services{
		Lobby:      lobby,
		Accept:     accept,
		Draft:      draft,
		Settlement: settlement,
		Profile:    profile,
	}
}

// Store key layout. Lock keys for matches are distinct from record keys so
// holding a match lock covers both its pending and active records.
func slotKey(mode domain.Mode, index int) string {
	return fmt.Sprintf("lobby:%s:%d", mode, index)
}

func pendingKey(id uuid.UUID) string {
	return "pending:" + id.String()
}

func activeKey(id uuid.UUID) string {
	return "match:" + id.String()
}

func matchLockKey(id uuid.UUID) string {
	return "lock:match:" + id.String()
}

func playerLockKey(id int64) string {
	return fmt.Sprintf("lock:player:%d", id)
}
