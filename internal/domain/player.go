package domain

import (
	"time"
)

// Player is the durable rating record for one participant. IDs come from the
// external messenger identity, not from us.
type Player struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	GameID      string     `json:"gameId" gorm:"not null"`
	DisplayName string     `json:"displayName" gorm:"uniqueIndex;not null"`
	Rating      int        `json:"rating" gorm:"not null;default:1000"`
	Level       int        `json:"level" gorm:"not null;default:4"`
	Matches     int        `json:"matches" gorm:"not null;default:0"`
	Wins        int        `json:"wins" gorm:"not null;default:0"`
	MissedGames int        `json:"missedGames" gorm:"not null;default:0"`
	BannedUntil *time.Time `json:"bannedUntil"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ratingBands maps rating ceilings to levels 1..9; anything above the last
// ceiling is level 10.
var ratingBands = []int{500, 750, 900, 1050, 1200, 1350, 1530, 1750, 2000}

// LevelForRating derives the banded level from a rating.
func LevelForRating(rating int) int {
	for i, ceil := range ratingBands {
		if rating <= ceil {
			return i + 1
		}
	}
	return 10
}

// IsBanned reports whether the player is locked out of matchmaking at now.
func (p *Player) IsBanned(now time.Time) bool {
	return p.BannedUntil != nil && now.Before(*p.BannedUntil)
}

// Winrate returns the win percentage, 0 for players without matches.
func (p *Player) Winrate() float64 {
	if p.Matches == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.Matches) * 100
}

// PlayerSnapshot is the slice of player state frozen into lobby slots and
// match rosters. Ratings keep moving underneath; the snapshot does not.
type PlayerSnapshot struct {
	PlayerID    int64  `json:"playerId"`
	DisplayName string `json:"displayName"`
	Level       int    `json:"level"`
	GameID      string `json:"gameId"`
}

// Snapshot freezes the fields carried through lobby and draft records.
func (p *Player) Snapshot() PlayerSnapshot {
	return PlayerSnapshot{
		PlayerID:    p.ID,
		DisplayName: p.DisplayName,
		Level:       p.Level,
		GameID:      p.GameID,
	}
}
