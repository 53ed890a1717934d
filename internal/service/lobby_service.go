package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/yodateam/faceit-backend/internal/domain"
	"github.com/yodateam/faceit-backend/internal/events"
	"github.com/yodateam/faceit-backend/internal/repository"
)

// lobbyTTL keeps half-filled slots from lingering forever after everyone
// stops queueing.
const lobbyTTL = 24 * time.Hour

type LobbyService struct {
	players repository.PlayerRepository
	store   repository.StateStore
	locks   *keyMutex
	events  events.Publisher

	// onFull receives the drained roster of a slot that just reached
	// capacity. Wired to the accept stage by NewServices.
	onFull func(ctx context.Context, mode domain.Mode, roster []domain.PlayerSnapshot)
}

func NewLobbyService(
	players repository.PlayerRepository,
	store repository.StateStore,
	locks *keyMutex,
	publisher events.Publisher,
) *LobbyService {
	return &LobbyService{
		players: players,
		store:   store,
		locks:   locks,
		events:  publisher,
	}
}

// Join adds a player to the given slot. A slot that reaches capacity is
// drained and reset before the call returns; the roster moves on to accept
// coordination.
func (s *LobbyService) Join(ctx context.Context, playerID int64, mode domain.Mode, index int) (*domain.LobbySlot, error) {
	if index < 0 || index >= domain.SlotsPerMode {
		return nil, domain.ErrUnknownSlot
	}

	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player.IsBanned(time.Now()) {
		return nil, domain.ErrPlayerBanned
	}

	// Player lock first, slot lock second. Keeps one player from landing
	// in two slots through concurrent requests.
	unlockPlayer := s.locks.Lock(playerLockKey(playerID))
	defer unlockPlayer()

	if current, err := s.CurrentLobbyOf(ctx, playerID); err != nil {
		return nil, err
	} else if current != nil {
		return nil, domain.ErrAlreadyInLobby
	}

	unlockSlot := s.locks.Lock(slotKey(mode, index))
	defer unlockSlot()

	slot, err := s.loadSlot(ctx, mode, index)
	if err != nil {
		return nil, err
	}
	if slot.Contains(playerID) {
		return nil, domain.ErrAlreadyInLobby
	}
	if slot.IsFull() {
		return nil, domain.ErrSlotFull
	}

	slot.Players = append(slot.Players, player.Snapshot())

	var roster []domain.PlayerSnapshot
	if slot.IsFull() {
		roster = slot.Players
		slot.Players = nil
	}
	if err := s.store.Set(ctx, slotKey(mode, index), slot, lobbyTTL); err != nil {
		return nil, err
	}

	s.events.Publish(events.Event{
		Type: events.TypeLobbyUpdate,
		Payload: map[string]any{
			"mode":  mode,
			"index": index,
			"count": len(slot.Players),
		},
	})

	if roster != nil && s.onFull != nil {
		s.onFull(ctx, mode, roster)
		joined := *slot
		joined.Players = roster
		return &joined, nil
	}
	return slot, nil
}

// Leave removes a player from a slot they occupy.
func (s *LobbyService) Leave(ctx context.Context, playerID int64, mode domain.Mode, index int) (*domain.LobbySlot, error) {
	if index < 0 || index >= domain.SlotsPerMode {
		return nil, domain.ErrUnknownSlot
	}

	unlockSlot := s.locks.Lock(slotKey(mode, index))
	defer unlockSlot()

	slot, err := s.loadSlot(ctx, mode, index)
	if err != nil {
		return nil, err
	}
	removed := false
	kept := slot.Players[:0]
	for _, p := range slot.Players {
		if p.PlayerID == playerID {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	if !removed {
		return nil, domain.ErrNotInLobby
	}
	slot.Players = kept
	if err := s.store.Set(ctx, slotKey(mode, index), slot, lobbyTTL); err != nil {
		return nil, err
	}

	s.events.Publish(events.Event{
		Type: events.TypeLobbyUpdate,
		Payload: map[string]any{
			"mode":  mode,
			"index": index,
			"count": len(slot.Players),
		},
	})
	return slot, nil
}

// ListSlots returns the full board for a mode, empty slots included.
func (s *LobbyService) ListSlots(ctx context.Context, mode domain.Mode) ([]domain.LobbySlot, error) {
	var stored []domain.LobbySlot
	if err := s.store.List(ctx, "lobby:"+string(mode)+":", &stored); err != nil {
		return nil, err
	}

	slots := make([]domain.LobbySlot, domain.SlotsPerMode)
	for i := range slots {
		slots[i] = domain.LobbySlot{Mode: mode, Index: i}
	}
	for _, sl := range stored {
		if sl.Index >= 0 && sl.Index < domain.SlotsPerMode {
			slots[sl.Index] = sl
		}
	}
	return slots, nil
}

// CurrentLobbyOf finds the slot the player currently sits in, nil if none.
func (s *LobbyService) CurrentLobbyOf(ctx context.Context, playerID int64) (*domain.LobbySlot, error) {
	var stored []domain.LobbySlot
	if err := s.store.List(ctx, "lobby:", &stored); err != nil {
		return nil, err
	}
	for i := range stored {
		if stored[i].Contains(playerID) {
			return &stored[i], nil
		}
	}
	return nil, nil
}

// Requeue puts a player back into the first slot of the mode with room.
// Used after an accept window collapses around players who did confirm.
func (s *LobbyService) Requeue(ctx context.Context, playerID int64, mode domain.Mode) error {
	for index := 0; index < domain.SlotsPerMode; index++ {
		_, err := s.Join(ctx, playerID, mode, index)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrSlotFull) {
			continue
		}
		if errors.Is(err, domain.ErrAlreadyInLobby) {
			return nil
		}
		return err
	}
	log.Printf("WARN [lobby.Requeue] no open %s slot for player %d", mode, playerID)
	return domain.ErrSlotFull
}

func (s *LobbyService) loadSlot(ctx context.Context, mode domain.Mode, index int) (*domain.LobbySlot, error) {
	slot := &domain.LobbySlot{Mode: mode, Index: index}
	err := s.store.Get(ctx, slotKey(mode, index), slot)
	if err != nil && !errors.Is(err, repository.ErrKeyNotFound) {
		return nil, err
	}
	// a stale record keeps its stored mode/index; trust the key
	slot.Mode = mode
	slot.Index = index
	return slot, nil
}
