package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yodateam/faceit-backend/internal/domain"
)

// PlayerBuilder creates test players with a builder pattern
type PlayerBuilder struct {
	id          int64
	displayName string
	gameID      string
	rating      int
	missedGames int
	bannedUntil *time.Time
}

var nextPlayerID int64 = 100000

// NewPlayerBuilder creates a new PlayerBuilder with default values
func NewPlayerBuilder() *PlayerBuilder {
	nextPlayerID++
	id := nextPlayerID
	return &PlayerBuilder{
		id:          id,
		displayName: fmt.Sprintf("player_%d", id),
		gameID:      fmt.Sprintf("game_%d", id),
		rating:      1000,
	}
}

func (b *PlayerBuilder) WithID(id int64) *PlayerBuilder {
	b.id = id
	return b
}

func (b *PlayerBuilder) WithDisplayName(name string) *PlayerBuilder {
	b.displayName = name
	return b
}

func (b *PlayerBuilder) WithRating(rating int) *PlayerBuilder {
	b.rating = rating
	return b
}

func (b *PlayerBuilder) WithMissedGames(count int) *PlayerBuilder {
	b.missedGames = count
	return b
}

func (b *PlayerBuilder) BannedFor(d time.Duration) *PlayerBuilder {
	until := time.Now().Add(d)
	b.bannedUntil = &until
	return b
}

// Build creates the player in the database
func (b *PlayerBuilder) Build(t *testing.T, db *gorm.DB) *domain.Player {
	t.Helper()

	player := &domain.Player{
		ID:          b.id,
		DisplayName: b.displayName,
		GameID:      b.gameID,
		Rating:      b.rating,
		Level:       domain.LevelForRating(b.rating),
		MissedGames: b.missedGames,
		BannedUntil: b.bannedUntil,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := db.Create(player).Error; err != nil {
		t.Fatalf("failed to create player: %v", err)
	}
	return player
}

// CreatePlayers seeds n default players and returns them.
func CreatePlayers(t *testing.T, db *gorm.DB, n int) []*domain.Player {
	t.Helper()

	players := make([]*domain.Player, 0, n)
	for i := 0; i < n; i++ {
		players = append(players, NewPlayerBuilder().Build(t, db))
	}
	return players
}
