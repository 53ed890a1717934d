package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yodateam/faceit-backend/internal/domain"
)

type matchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) *matchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) Create(ctx context.Context, match *domain.Match) error {
	if match.ID == uuid.Nil {
		match.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(match).Error
}

func (r *matchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	var match domain.Match
	err := r.db.WithContext(ctx).First(&match, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (r *matchRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.MatchStatus, winnerCT *bool) error {
	updates := map[string]any{"status": status}
	if winnerCT != nil {
		updates["winner_ct"] = *winnerCT
	}
	result := r.db.WithContext(ctx).
		Model(&domain.Match{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}
