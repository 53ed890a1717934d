package service

import (
	"context"

	"github.com/yodateam/faceit-backend/internal/domain"
	"github.com/yodateam/faceit-backend/internal/repository"
)

const defaultLeaderboardSize = 20

type ProfileService struct {
	players repository.PlayerRepository
}

func NewProfileService(players repository.PlayerRepository) *ProfileService {
	return &ProfileService{players: players}
}

func (s *ProfileService) GetProfile(ctx context.Context, playerID int64) (*domain.Player, error) {
	return s.players.GetByID(ctx, playerID)
}

// Register creates a player record with the default rating. Existing IDs
// are returned as-is so the endpoint is safe to retry.
func (s *ProfileService) Register(ctx context.Context, playerID int64, displayName, gameID string) (*domain.Player, error) {
	existing, err := s.players.GetByID(ctx, playerID)
	if err == nil {
		return existing, nil
	}
	player := &domain.Player{
		ID:          playerID,
		DisplayName: displayName,
		GameID:      gameID,
		Rating:      1000,
		Level:       domain.LevelForRating(1000),
	}
	if err := s.players.Create(ctx, player); err != nil {
		return nil, err
	}
	return player, nil
}

func (s *ProfileService) Leaderboard(ctx context.Context, limit int) ([]domain.Player, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultLeaderboardSize
	}
	return s.players.TopByRating(ctx, limit)
}
