package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yodateam/faceit-backend/internal/config"
	"github.com/yodateam/faceit-backend/internal/domain"
	"github.com/yodateam/faceit-backend/internal/events"
	"github.com/yodateam/faceit-backend/internal/notify"
	"github.com/yodateam/faceit-backend/internal/repository"
	"github.com/yodateam/faceit-backend/internal/scheduler"
)

// pendingTTL outlives the accept window by a wide margin so a delayed
// expiry wake still finds its record.
const pendingTTL = 5 * time.Minute

// AcceptService runs the confirmation window between a filled slot and the
// draft. The pending record's existence decides every race: whoever deletes
// it (last acceptor or the deadline wake) owns the outcome.
type AcceptService struct {
	players  repository.PlayerRepository
	matches  repository.MatchRepository
	store    repository.StateStore
	locks    *keyMutex
	notifier notify.Notifier
	sched    scheduler.Scheduler
	events   events.Publisher

	lobby *LobbyService
	draft *DraftService

	acceptWindow time.Duration
	missedLimit  int
	banDuration  time.Duration
}

func NewAcceptService(
	players repository.PlayerRepository,
	matches repository.MatchRepository,
	store repository.StateStore,
	locks *keyMutex,
	notifier notify.Notifier,
	sched scheduler.Scheduler,
	publisher events.Publisher,
	cfg *config.Config,
	lobby *LobbyService,
	draft *DraftService,
) *AcceptService {
	return &AcceptService{
		players:      players,
		matches:      matches,
		store:        store,
		locks:        locks,
		notifier:     notifier,
		sched:        sched,
		events:       publisher,
		lobby:        lobby,
		draft:        draft,
		acceptWindow: cfg.AcceptWindow,
		missedLimit:  cfg.MissedLimit,
		banDuration:  cfg.BanDuration,
	}
}

// OnLobbyFull opens the accept window for a drained roster. Called by the
// lobby stage with the slot already reset, so late joiners land in a fresh
// queue.
func (s *AcceptService) OnLobbyFull(ctx context.Context, mode domain.Mode, roster []domain.PlayerSnapshot) {
	match := &domain.Match{ID: uuid.New(), Mode: mode, Status: domain.StatusPending}
	if err := s.matches.Create(ctx, match); err != nil {
		log.Printf("ERROR [accept.OnLobbyFull] create match row: %v", err)
		return
	}

	pending := &domain.PendingMatch{
		ID:          match.ID,
		Mode:        mode,
		Roster:      roster,
		Accepted:    make(map[int64]bool),
		Deadline:    time.Now().Add(s.acceptWindow),
		MessageRefs: make(map[int64]domain.MessageRef),
	}
	for _, p := range roster {
		text := fmt.Sprintf("Match found (%s). Accept within %d seconds.", mode, int(s.acceptWindow.Seconds()))
		ref, err := s.notifier.Send(ctx, p.PlayerID, text)
		if err != nil {
			log.Printf("ERROR [accept.OnLobbyFull] notify player %d: %v", p.PlayerID, err)
			continue
		}
		pending.MessageRefs[p.PlayerID] = ref
	}

	if err := s.store.Set(ctx, pendingKey(match.ID), pending, pendingTTL); err != nil {
		log.Printf("ERROR [accept.OnLobbyFull] store pending %s: %v", match.ID, err)
		return
	}

	s.events.Publish(events.Event{
		Type: events.TypeMatchPending,
		Payload: map[string]any{
			"matchId": match.ID,
			"mode":    mode,
		},
	})

	matchID := match.ID
	s.sched.AfterFunc(s.acceptWindow, func() {
		s.expire(matchID)
	})
}

// Accept records one player's confirmation. Repeat accepts are no-ops. The
// final confirmation tears down the pending record and starts the draft.
func (s *AcceptService) Accept(ctx context.Context, playerID int64, matchID uuid.UUID) (*domain.PendingMatch, error) {
	unlock := s.locks.Lock(matchLockKey(matchID))

	var pending domain.PendingMatch
	if err := s.store.Get(ctx, pendingKey(matchID), &pending); err != nil {
		unlock()
		if errors.Is(err, repository.ErrKeyNotFound) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, err
	}
	if !pending.ContainsPlayer(playerID) {
		unlock()
		return nil, domain.ErrNotInMatch
	}
	if pending.Accepted[playerID] {
		unlock()
		return &pending, nil
	}

	pending.Accepted[playerID] = true

	if pending.AllAccepted() {
		if err := s.store.Delete(ctx, pendingKey(matchID)); err != nil {
			unlock()
			return nil, err
		}
		unlock()
		if ref, ok := pending.MessageRefs[playerID]; ok {
			s.editAck(ctx, playerID, ref)
		}
		if err := s.draft.Begin(ctx, &pending); err != nil {
			log.Printf("ERROR [accept.Accept] begin draft %s: %v", matchID, err)
			return nil, err
		}
		return &pending, nil
	}

	if err := s.store.Set(ctx, pendingKey(matchID), &pending, pendingTTL); err != nil {
		unlock()
		return nil, err
	}
	unlock()

	if ref, ok := pending.MessageRefs[playerID]; ok {
		s.editAck(ctx, playerID, ref)
	}
	return &pending, nil
}

// GetPending returns the live accept record, if any.
func (s *AcceptService) GetPending(ctx context.Context, matchID uuid.UUID) (*domain.PendingMatch, error) {
	var pending domain.PendingMatch
	if err := s.store.Get(ctx, pendingKey(matchID), &pending); err != nil {
		if errors.Is(err, repository.ErrKeyNotFound) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, err
	}
	return &pending, nil
}

func (s *AcceptService) editAck(ctx context.Context, playerID int64, ref domain.MessageRef) {
	if err := s.notifier.Edit(ctx, playerID, ref, "Accepted. Waiting for the rest of the roster."); err != nil {
		log.Printf("ERROR [accept.editAck] player %d: %v", playerID, err)
	}
}

// expire fires at the accept deadline. If the record is gone the match
// already started and this wake is stale. Otherwise absentees are struck
// and everyone who confirmed goes back to the queue.
func (s *AcceptService) expire(matchID uuid.UUID) {
	ctx := context.Background()

	unlock := s.locks.Lock(matchLockKey(matchID))

	var pending domain.PendingMatch
	if err := s.store.Get(ctx, pendingKey(matchID), &pending); err != nil {
		unlock()
		if !errors.Is(err, repository.ErrKeyNotFound) {
			log.Printf("ERROR [accept.expire] load pending %s: %v", matchID, err)
		}
		return
	}
	if err := s.store.Delete(ctx, pendingKey(matchID)); err != nil {
		unlock()
		log.Printf("ERROR [accept.expire] delete pending %s: %v", matchID, err)
		return
	}
	unlock()

	if err := s.matches.SetStatus(ctx, matchID, domain.StatusCancelled, nil); err != nil {
		log.Printf("ERROR [accept.expire] cancel match %s: %v", matchID, err)
	}

	for _, p := range pending.Roster {
		if pending.Accepted[p.PlayerID] {
			s.requeueAccepted(ctx, p, pending.Mode)
			continue
		}
		s.strikeAbsentee(ctx, p.PlayerID)
	}

	s.events.Publish(events.Event{
		Type: events.TypeMatchSettled,
		Payload: map[string]any{
			"matchId": matchID,
			"status":  domain.StatusCancelled,
		},
	})
}

func (s *AcceptService) requeueAccepted(ctx context.Context, p domain.PlayerSnapshot, mode domain.Mode) {
	if err := s.lobby.Requeue(ctx, p.PlayerID, mode); err != nil {
		log.Printf("ERROR [accept.expire] requeue player %d: %v", p.PlayerID, err)
	}
	if _, err := s.notifier.Send(ctx, p.PlayerID, "Match cancelled: not everyone accepted. You are back in the queue."); err != nil {
		log.Printf("ERROR [accept.expire] notify player %d: %v", p.PlayerID, err)
	}
}

func (s *AcceptService) strikeAbsentee(ctx context.Context, playerID int64) {
	count, err := s.players.IncrementMissedGames(ctx, playerID)
	if err != nil {
		log.Printf("ERROR [accept.expire] strike player %d: %v", playerID, err)
		return
	}
	if count < s.missedLimit {
		text := fmt.Sprintf("You missed a match (%d/%d). Reaching the limit means a temporary matchmaking ban.", count, s.missedLimit)
		if _, err := s.notifier.Send(ctx, playerID, text); err != nil {
			log.Printf("ERROR [accept.expire] notify player %d: %v", playerID, err)
		}
		return
	}

	until := time.Now().Add(s.banDuration)
	if err := s.players.SetBannedUntil(ctx, playerID, until); err != nil {
		log.Printf("ERROR [accept.expire] ban player %d: %v", playerID, err)
		return
	}
	if err := s.players.ResetMissedGames(ctx, playerID); err != nil {
		log.Printf("ERROR [accept.expire] reset strikes for player %d: %v", playerID, err)
	}
	text := fmt.Sprintf("Too many missed matches: banned from matchmaking for %d minutes.", int(s.banDuration.Minutes()))
	if _, err := s.notifier.Send(ctx, playerID, text); err != nil {
		log.Printf("ERROR [accept.expire] notify player %d: %v", playerID, err)
	}
}
