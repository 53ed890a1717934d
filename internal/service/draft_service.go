package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yodateam/faceit-backend/internal/config"
	"github.com/yodateam/faceit-backend/internal/domain"
	"github.com/yodateam/faceit-backend/internal/events"
	"github.com/yodateam/faceit-backend/internal/notify"
	"github.com/yodateam/faceit-backend/internal/repository"
	"github.com/yodateam/faceit-backend/internal/scheduler"
)

// DraftService runs the ban/pick state machine. Every step carries a
// deadline wake that captures the (phase, turn) it was armed for and
// no-ops if the draft moved on before it fired.
type DraftService struct {
	matches  repository.MatchRepository
	store    repository.StateStore
	locks    *keyMutex
	notifier notify.Notifier
	sched    scheduler.Scheduler
	events   events.Publisher

	stepWindow   time.Duration
	retention    time.Duration
	adjudicators []int64
}

func NewDraftService(
	matches repository.MatchRepository,
	store repository.StateStore,
	locks *keyMutex,
	notifier notify.Notifier,
	sched scheduler.Scheduler,
	publisher events.Publisher,
	cfg *config.Config,
) *DraftService {
	return &DraftService{
		matches:      matches,
		store:        store,
		locks:        locks,
		notifier:     notifier,
		sched:        sched,
		events:       publisher,
		stepWindow:   cfg.StepWindow,
		retention:    cfg.MatchRetention,
		adjudicators: cfg.Adjudicators,
	}
}

// Begin promotes a fully accepted roster into a live draft. The roster is
// shuffled, the first two players become captains, and the ban phase opens
// on the CT side.
func (s *DraftService) Begin(ctx context.Context, pending *domain.PendingMatch) error {
	roster := make([]domain.PlayerSnapshot, len(pending.Roster))
	copy(roster, pending.Roster)
	rand.Shuffle(len(roster), func(i, j int) {
		roster[i], roster[j] = roster[j], roster[i]
	})

	lo, hi := domain.RatingDeltaRange(pending.Mode)
	am := &domain.ActiveMatch{
		ID:        pending.ID,
		Mode:      pending.Mode,
		Roster:    roster,
		Captains:  map[domain.Side]int64{domain.SideCT: roster[0].PlayerID, domain.SideT: roster[1].PlayerID},
		Phase:     domain.PhaseBan,
		Turn:      domain.SideCT,
		Available: domain.MapPoolFor(pending.Mode),
		Teams: map[domain.Side][]domain.PlayerSnapshot{
			domain.SideCT: {roster[0]},
			domain.SideT:  {roster[1]},
		},
		Unassigned:      append([]domain.PlayerSnapshot(nil), roster[2:]...),
		RatingDelta:     lo + rand.Intn(hi-lo+1),
		MessageRefs:     make(map[int64]domain.MessageRef),
		AdjudicatorRefs: make(map[int64]domain.MessageRef),
	}

	unlock := s.locks.Lock(matchLockKey(am.ID))
	defer unlock()

	if err := s.matches.SetStatus(ctx, am.ID, domain.StatusActive, nil); err != nil {
		return err
	}
	for _, p := range am.Roster {
		ref, err := s.notifier.Send(ctx, p.PlayerID, s.describe(am))
		if err != nil {
			log.Printf("ERROR [draft.Begin] notify player %d: %v", p.PlayerID, err)
			continue
		}
		am.MessageRefs[p.PlayerID] = ref
	}
	if err := s.store.Set(ctx, activeKey(am.ID), am, s.retention); err != nil {
		return err
	}

	s.publishState(am)
	s.scheduleStep(am)
	return nil
}

// SubmitBan applies a map ban from the captain whose turn it is.
func (s *DraftService) SubmitBan(ctx context.Context, playerID int64, matchID uuid.UUID, mapName string) (*domain.ActiveMatch, error) {
	return s.submit(ctx, playerID, matchID, func(am *domain.ActiveMatch, side domain.Side) error {
		return am.ApplyBan(side, mapName)
	})
}

// SubmitPick applies a player pick from the captain whose turn it is.
func (s *DraftService) SubmitPick(ctx context.Context, playerID int64, matchID uuid.UUID, pickID int64) (*domain.ActiveMatch, error) {
	return s.submit(ctx, playerID, matchID, func(am *domain.ActiveMatch, side domain.Side) error {
		return am.ApplyPick(side, pickID)
	})
}

// Get returns the live draft record.
func (s *DraftService) Get(ctx context.Context, matchID uuid.UUID) (*domain.ActiveMatch, error) {
	var am domain.ActiveMatch
	if err := s.store.Get(ctx, activeKey(matchID), &am); err != nil {
		if errors.Is(err, repository.ErrKeyNotFound) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, err
	}
	return &am, nil
}

func (s *DraftService) submit(ctx context.Context, playerID int64, matchID uuid.UUID, apply func(*domain.ActiveMatch, domain.Side) error) (*domain.ActiveMatch, error) {
	unlock := s.locks.Lock(matchLockKey(matchID))
	defer unlock()

	var am domain.ActiveMatch
	if err := s.store.Get(ctx, activeKey(matchID), &am); err != nil {
		if errors.Is(err, repository.ErrKeyNotFound) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, err
	}
	if !am.ContainsPlayer(playerID) {
		return nil, domain.ErrNotInMatch
	}
	side, ok := s.captainSide(&am, playerID)
	if !ok {
		return nil, domain.ErrNotYourTurn
	}
	if err := apply(&am, side); err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, activeKey(matchID), &am, s.retention); err != nil {
		return nil, err
	}

	s.afterTransition(ctx, &am)
	return &am, nil
}

func (s *DraftService) captainSide(am *domain.ActiveMatch, playerID int64) (domain.Side, bool) {
	for side, id := range am.Captains {
		if id == playerID {
			return side, true
		}
	}
	return "", false
}

// stepTimeout fires at a step deadline. The captured phase and turn are
// the guard: any mismatch means a manual action won the race and this
// wake has nothing to do.
func (s *DraftService) stepTimeout(matchID uuid.UUID, phase domain.Phase, turn domain.Side) {
	ctx := context.Background()

	unlock := s.locks.Lock(matchLockKey(matchID))
	defer unlock()

	var am domain.ActiveMatch
	if err := s.store.Get(ctx, activeKey(matchID), &am); err != nil {
		if !errors.Is(err, repository.ErrKeyNotFound) {
			log.Printf("ERROR [draft.stepTimeout] load match %s: %v", matchID, err)
		}
		return
	}
	if am.Phase != phase || am.Turn != turn {
		return
	}

	switch am.Phase {
	case domain.PhaseBan:
		choice := am.Available[rand.Intn(len(am.Available))]
		if err := am.ApplyBan(am.Turn, choice); err != nil {
			log.Printf("ERROR [draft.stepTimeout] auto-ban %s: %v", matchID, err)
			return
		}
		log.Printf("INFO [draft.stepTimeout] match %s: auto-banned %s for %s", matchID, choice, turn)
	case domain.PhasePick:
		choice := am.Unassigned[rand.Intn(len(am.Unassigned))]
		if err := am.ApplyPick(am.Turn, choice.PlayerID); err != nil {
			log.Printf("ERROR [draft.stepTimeout] auto-pick %s: %v", matchID, err)
			return
		}
		log.Printf("INFO [draft.stepTimeout] match %s: auto-picked %s for %s", matchID, choice.DisplayName, turn)
	default:
		return
	}

	if err := s.store.Set(ctx, activeKey(matchID), &am, s.retention); err != nil {
		log.Printf("ERROR [draft.stepTimeout] store match %s: %v", matchID, err)
		return
	}
	s.afterTransition(ctx, &am)
}

// afterTransition runs with the match lock held, right after a persisted
// state change. It arms the next deadline or closes the draft out.
func (s *DraftService) afterTransition(ctx context.Context, am *domain.ActiveMatch) {
	if am.Phase != domain.PhaseDone {
		s.publishState(am)
		s.promptTurn(ctx, am)
		s.scheduleStep(am)
		return
	}

	for _, p := range am.Roster {
		ref, ok := am.MessageRefs[p.PlayerID]
		if !ok {
			continue
		}
		if err := s.notifier.Edit(ctx, p.PlayerID, ref, s.describe(am)); err != nil {
			log.Printf("ERROR [draft.afterTransition] notify player %d: %v", p.PlayerID, err)
		}
	}
	for _, adjID := range s.adjudicators {
		if am.ContainsPlayer(adjID) {
			continue
		}
		ref, err := s.notifier.Send(ctx, adjID, "Awaiting result: "+s.describe(am))
		if err != nil {
			log.Printf("ERROR [draft.afterTransition] notify adjudicator %d: %v", adjID, err)
			continue
		}
		am.AdjudicatorRefs[adjID] = ref
	}
	if len(s.adjudicators) > 0 {
		if err := s.store.Set(ctx, activeKey(am.ID), am, s.retention); err != nil {
			log.Printf("ERROR [draft.afterTransition] store match %s: %v", am.ID, err)
		}
	}

	s.events.Publish(events.Event{
		Type: events.TypeMatchDone,
		Payload: map[string]any{
			"matchId":  am.ID,
			"finalMap": am.FinalMap,
		},
	})
}

func (s *DraftService) scheduleStep(am *domain.ActiveMatch) {
	matchID, phase, turn := am.ID, am.Phase, am.Turn
	s.sched.AfterFunc(s.stepWindow, func() {
		s.stepTimeout(matchID, phase, turn)
	})
}

func (s *DraftService) promptTurn(ctx context.Context, am *domain.ActiveMatch) {
	holder := am.TurnHolder()
	ref, ok := am.MessageRefs[holder]
	text := s.describe(am)
	if !ok {
		if _, err := s.notifier.Send(ctx, holder, text); err != nil {
			log.Printf("ERROR [draft.promptTurn] notify player %d: %v", holder, err)
		}
		return
	}
	if err := s.notifier.Edit(ctx, holder, ref, text); err != nil {
		log.Printf("ERROR [draft.promptTurn] notify player %d: %v", holder, err)
	}
}

func (s *DraftService) publishState(am *domain.ActiveMatch) {
	s.events.Publish(events.Event{
		Type: events.TypeDraftUpdate,
		Payload: map[string]any{
			"matchId": am.ID,
			"phase":   am.Phase,
			"turn":    am.Turn,
		},
	})
}

func (s *DraftService) describe(am *domain.ActiveMatch) string {
	switch am.Phase {
	case domain.PhaseBan:
		return fmt.Sprintf("Match %s (%s): ban phase, %s to ban. Maps left: %s.",
			am.ID, am.Mode, am.Turn, strings.Join(am.Available, ", "))
	case domain.PhasePick:
		names := make([]string, 0, len(am.Unassigned))
		for _, p := range am.Unassigned {
			names = append(names, p.DisplayName)
		}
		return fmt.Sprintf("Match %s (%s): map is %s, %s to pick. Undrafted: %s.",
			am.ID, am.Mode, am.FinalMap, am.Turn, strings.Join(names, ", "))
	default:
		ct := make([]string, 0, len(am.Teams[domain.SideCT]))
		for _, p := range am.Teams[domain.SideCT] {
			ct = append(ct, p.DisplayName)
		}
		t := make([]string, 0, len(am.Teams[domain.SideT]))
		for _, p := range am.Teams[domain.SideT] {
			t = append(t, p.DisplayName)
		}
		return fmt.Sprintf("Match %s (%s) on %s for %d points. CT: %s. T: %s.",
			am.ID, am.Mode, am.FinalMap, am.RatingDelta, strings.Join(ct, ", "), strings.Join(t, ", "))
	}
}
