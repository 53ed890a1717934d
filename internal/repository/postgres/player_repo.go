package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yodateam/faceit-backend/internal/domain"
)

type playerRepository struct {
	db *gorm.DB
}

func NewPlayerRepository(db *gorm.DB) *playerRepository {
	return &playerRepository{db: db}
}

func (r *playerRepository) GetByID(ctx context.Context, id int64) (*domain.Player, error) {
	var player domain.Player
	err := r.db.WithContext(ctx).First(&player, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUnknownPlayer
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *playerRepository) GetByDisplayName(ctx context.Context, name string) (*domain.Player, error) {
	var player domain.Player
	err := r.db.WithContext(ctx).First(&player, "display_name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUnknownPlayer
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *playerRepository) Create(ctx context.Context, player *domain.Player) error {
	if player.Rating == 0 {
		player.Rating = 1000
	}
	player.Level = domain.LevelForRating(player.Rating)
	return r.db.WithContext(ctx).Create(player).Error
}

func (r *playerRepository) Update(ctx context.Context, player *domain.Player) error {
	return r.db.WithContext(ctx).Save(player).Error
}

// ApplyRatingDelta runs the rating mutation in a transaction so two
// settlements on the same player cannot interleave.
func (r *playerRepository) ApplyRatingDelta(ctx context.Context, id int64, delta int, win bool) (*domain.Player, error) {
	var player domain.Player
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&player, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrUnknownPlayer
			}
			return err
		}
		player.Rating += delta
		if player.Rating < 0 {
			player.Rating = 0
		}
		player.Level = domain.LevelForRating(player.Rating)
		player.Matches++
		if win {
			player.Wins++
		}
		return tx.Save(&player).Error
	})
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *playerRepository) IncrementMissedGames(ctx context.Context, id int64) (int, error) {
	var player domain.Player
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&player, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrUnknownPlayer
			}
			return err
		}
		player.MissedGames++
		return tx.Save(&player).Error
	})
	if err != nil {
		return 0, err
	}
	return player.MissedGames, nil
}

func (r *playerRepository) ResetMissedGames(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.Player{}).
		Where("id = ?", id).
		Update("missed_games", 0).Error
}

func (r *playerRepository) SetBannedUntil(ctx context.Context, id int64, until time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Player{}).
		Where("id = ?", id).
		Update("banned_until", until).Error
}

func (r *playerRepository) TopByRating(ctx context.Context, limit int) ([]domain.Player, error) {
	var players []domain.Player
	err := r.db.WithContext(ctx).
		Order("rating DESC").
		Limit(limit).
		Find(&players).Error
	if err != nil {
		return nil, err
	}
	return players, nil
}
