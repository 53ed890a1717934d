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
)

// SettlementService closes matches out: evidence intake from players,
// then a human adjudicator's verdict. Confirming, cancelling or letting
// the record expire are the only exits; there is no automatic scoring.
type SettlementService struct {
	players  repository.PlayerRepository
	matches  repository.MatchRepository
	store    repository.StateStore
	locks    *keyMutex
	notifier notify.Notifier
	events   events.Publisher

	retention    time.Duration
	adjudicators []int64
}

func NewSettlementService(
	players repository.PlayerRepository,
	matches repository.MatchRepository,
	store repository.StateStore,
	locks *keyMutex,
	notifier notify.Notifier,
	publisher events.Publisher,
	cfg *config.Config,
) *SettlementService {
	return &SettlementService{
		players:      players,
		matches:      matches,
		store:        store,
		locks:        locks,
		notifier:     notifier,
		events:       publisher,
		retention:    cfg.MatchRetention,
		adjudicators: cfg.Adjudicators,
	}
}

// SubmitResultEvidence records a player's result claim on a finished draft
// and forwards it to the adjudicators.
func (s *SettlementService) SubmitResultEvidence(ctx context.Context, playerID int64, matchID uuid.UUID, ref string) (*domain.ActiveMatch, error) {
	unlock := s.locks.Lock(matchLockKey(matchID))
	defer unlock()

	am, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if am.Phase != domain.PhaseDone {
		return nil, domain.ErrWrongPhase
	}
	if !am.ContainsPlayer(playerID) {
		return nil, domain.ErrNotInMatch
	}

	am.Evidence = append(am.Evidence, domain.EvidenceRef{
		PlayerID:    playerID,
		Ref:         ref,
		SubmittedAt: time.Now(),
	})
	if err := s.store.Set(ctx, activeKey(matchID), am, s.retention); err != nil {
		return nil, err
	}

	for _, adjID := range s.adjudicators {
		text := fmt.Sprintf("Result evidence for match %s from player %d: %s", matchID, playerID, ref)
		if _, err := s.notifier.Send(ctx, adjID, text); err != nil {
			log.Printf("ERROR [settlement.SubmitResultEvidence] notify adjudicator %d: %v", adjID, err)
		}
	}
	return am, nil
}

// ConfirmWin settles the match in favor of one side. Winners gain the
// stake sampled at creation, losers lose it, everyone's match counter
// moves, and the coordination record is torn down. A voided player still
// settles; the void mark is an audit trail for manual correction.
func (s *SettlementService) ConfirmWin(ctx context.Context, matchID uuid.UUID, winner domain.Side) (*domain.ActiveMatch, error) {
	unlock := s.locks.Lock(matchLockKey(matchID))
	defer unlock()

	am, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if am.Phase != domain.PhaseDone {
		return nil, domain.ErrWrongPhase
	}

	for side, team := range am.Teams {
		delta := am.RatingDelta
		win := side == winner
		if !win {
			delta = -delta
		}
		for _, p := range team {
			updated, err := s.players.ApplyRatingDelta(ctx, p.PlayerID, delta, win)
			if err != nil {
				log.Printf("ERROR [settlement.ConfirmWin] rating for player %d: %v", p.PlayerID, err)
				continue
			}
			verdict := "lost"
			if win {
				verdict = "won"
			}
			text := fmt.Sprintf("Match on %s settled: your team %s. Rating %d (level %d).",
				am.FinalMap, verdict, updated.Rating, updated.Level)
			if _, err := s.notifier.Send(ctx, p.PlayerID, text); err != nil {
				log.Printf("ERROR [settlement.ConfirmWin] notify player %d: %v", p.PlayerID, err)
			}
		}
	}

	winnerCT := winner == domain.SideCT
	if err := s.matches.SetStatus(ctx, matchID, domain.StatusCompleted, &winnerCT); err != nil {
		log.Printf("ERROR [settlement.ConfirmWin] status for match %s: %v", matchID, err)
	}
	if err := s.store.Delete(ctx, activeKey(matchID)); err != nil {
		return nil, err
	}

	for adjID, ref := range am.AdjudicatorRefs {
		text := fmt.Sprintf("Match %s settled: %s win on %s.", matchID, winner, am.FinalMap)
		if err := s.notifier.Edit(ctx, adjID, ref, text); err != nil {
			log.Printf("ERROR [settlement.ConfirmWin] notify adjudicator %d: %v", adjID, err)
		}
	}

	s.events.Publish(events.Event{
		Type: events.TypeMatchSettled,
		Payload: map[string]any{
			"matchId": matchID,
			"status":  domain.StatusCompleted,
			"winner":  winner,
		},
	})
	return am, nil
}

// CancelAll voids the whole match with no rating movement. Valid in any
// phase; an adjudicator can kill a draft that went sideways.
func (s *SettlementService) CancelAll(ctx context.Context, matchID uuid.UUID) error {
	unlock := s.locks.Lock(matchLockKey(matchID))
	defer unlock()

	am, err := s.load(ctx, matchID)
	if err != nil {
		return err
	}

	if err := s.matches.SetStatus(ctx, matchID, domain.StatusCancelled, nil); err != nil {
		log.Printf("ERROR [settlement.CancelAll] status for match %s: %v", matchID, err)
	}
	if err := s.store.Delete(ctx, activeKey(matchID)); err != nil {
		return err
	}

	for _, p := range am.Roster {
		if _, err := s.notifier.Send(ctx, p.PlayerID, "Match cancelled by an adjudicator. No rating change."); err != nil {
			log.Printf("ERROR [settlement.CancelAll] notify player %d: %v", p.PlayerID, err)
		}
	}
	for adjID, ref := range am.AdjudicatorRefs {
		if err := s.notifier.Edit(ctx, adjID, ref, fmt.Sprintf("Match %s cancelled.", matchID)); err != nil {
			log.Printf("ERROR [settlement.CancelAll] notify adjudicator %d: %v", adjID, err)
		}
	}

	s.events.Publish(events.Event{
		Type: events.TypeMatchSettled,
		Payload: map[string]any{
			"matchId": matchID,
			"status":  domain.StatusCancelled,
		},
	})
	return nil
}

// NullifyOne flags a single player's result as void. The mark is recorded
// on the match for the audit trail and the player is told; the eventual
// settlement still includes them.
func (s *SettlementService) NullifyOne(ctx context.Context, matchID uuid.UUID, playerID int64) (*domain.ActiveMatch, error) {
	unlock := s.locks.Lock(matchLockKey(matchID))
	defer unlock()

	am, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !am.ContainsPlayer(playerID) {
		return nil, domain.ErrNotInMatch
	}
	if !am.IsVoided(playerID) {
		am.Voided = append(am.Voided, playerID)
		if err := s.store.Set(ctx, activeKey(matchID), am, s.retention); err != nil {
			return nil, err
		}
	}

	if _, err := s.notifier.Send(ctx, playerID, "Your result in the current match was voided by an adjudicator."); err != nil {
		log.Printf("ERROR [settlement.NullifyOne] notify player %d: %v", playerID, err)
	}
	return am, nil
}

func (s *SettlementService) load(ctx context.Context, matchID uuid.UUID) (*domain.ActiveMatch, error) {
	var am domain.ActiveMatch
	if err := s.store.Get(ctx, activeKey(matchID), &am); err != nil {
		if errors.Is(err, repository.ErrKeyNotFound) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, err
	}
	return &am, nil
}
