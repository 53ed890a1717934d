package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yodateam/faceit-backend/internal/domain"
)

// ErrKeyNotFound is returned by StateStore.Get for missing or expired keys.
var ErrKeyNotFound = errors.New("key not found")

// PlayerRepository persists player records and rating mutations.
type PlayerRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Player, error)
	GetByDisplayName(ctx context.Context, name string) (*domain.Player, error)
	Create(ctx context.Context, player *domain.Player) error
	Update(ctx context.Context, player *domain.Player) error

	// ApplyRatingDelta moves the rating by delta (clamped at zero),
	// increments the match counter, counts the win when win is set and
	// recomputes the level band. Returns the updated row.
	ApplyRatingDelta(ctx context.Context, id int64, delta int, win bool) (*domain.Player, error)

	// IncrementMissedGames bumps the no-show counter and returns the new
	// value.
	IncrementMissedGames(ctx context.Context, id int64) (int, error)
	ResetMissedGames(ctx context.Context, id int64) error
	SetBannedUntil(ctx context.Context, id int64, until time.Time) error

	TopByRating(ctx context.Context, limit int) ([]domain.Player, error)
}

// MatchRepository persists the durable match ledger.
type MatchRepository interface {
	Create(ctx context.Context, match *domain.Match) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.MatchStatus, winnerCT *bool) error
}

// Repositories bundles the persistence dependencies handed to services.
type Repositories struct {
	Player PlayerRepository
	Match  MatchRepository
	State  StateStore
}

// StateStore is the coordination store for lobby slots and match records.
// Values are JSON documents; a zero ttl means no expiry.
type StateStore interface {
	Get(ctx context.Context, key string, out any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// List returns the values of every live key under prefix, decoding
	// each into a fresh element appended to out, which must be a pointer
	// to a slice.
	List(ctx context.Context, prefix string, out any) error
}
