package domain

import (
	"time"

	"github.com/google/uuid"
)

// Phase tracks where a draft stands.
type Phase string

const (
	PhaseBan  Phase = "BAN"
	PhasePick Phase = "PICK"
	PhaseDone Phase = "DONE"
)

// Side names the two teams.
type Side string

const (
	SideCT Side = "ct"
	SideT  Side = "t"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideCT {
		return SideT
	}
	return SideCT
}

// MatchStatus is the durable lifecycle state stored in the matches table.
type MatchStatus string

const (
	StatusPending   MatchStatus = "pending"
	StatusActive    MatchStatus = "active"
	StatusCancelled MatchStatus = "cancelled"
	StatusCompleted MatchStatus = "completed"
)

// Match is the durable match row. Coordination state (acceptance, draft)
// lives in the state store keyed by this ID.
type Match struct {
	ID        uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	Mode      Mode        `json:"mode" gorm:"not null"`
	Status    MatchStatus `json:"status" gorm:"not null;default:pending"`
	WinnerCT  *bool       `json:"winnerCt"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// MessageRef points at a notification previously sent to a player, so later
// stages can edit it in place instead of spamming new ones.
type MessageRef string

// mapPools are fixed per mode. The duel pool differs from the team pool.
var (
	duelMapPool = []string{"Temple", "Yard", "Bridge", "Pool", "Desert", "Pipeline", "Cableway"}
	teamMapPool = []string{"Sandstone", "Province", "Breeze", "Dune", "Zone 7", "Rust", "Hanami"}
)

// MapPoolFor returns a fresh copy of the mode's ban pool.
func MapPoolFor(m Mode) []string {
	src := teamMapPool
	if m == Mode1x1 {
		src = duelMapPool
	}
	pool := make([]string, len(src))
	copy(pool, src)
	return pool
}

// RatingDeltaRange returns the inclusive bounds the match stake is sampled
// from at creation time.
func RatingDeltaRange(m Mode) (lo, hi int) {
	switch m {
	case Mode1x1:
		return 5, 15
	case Mode2x2:
		return 20, 30
	case Mode5x5:
		return 25, 35
	}
	return 0, 0
}

// PendingMatch is the accept-coordination record for a freshly filled slot.
type PendingMatch struct {
	ID          uuid.UUID            `json:"id"`
	Mode        Mode                 `json:"mode"`
	Roster      []PlayerSnapshot     `json:"roster"`
	Accepted    map[int64]bool       `json:"accepted"`
	Deadline    time.Time            `json:"deadline"`
	MessageRefs map[int64]MessageRef `json:"messageRefs"`
}

// ContainsPlayer reports roster membership.
func (pm *PendingMatch) ContainsPlayer(playerID int64) bool {
	for _, p := range pm.Roster {
		if p.PlayerID == playerID {
			return true
		}
	}
	return false
}

// AllAccepted reports whether every rostered player confirmed.
func (pm *PendingMatch) AllAccepted() bool {
	for _, p := range pm.Roster {
		if !pm.Accepted[p.PlayerID] {
			return false
		}
	}
	return true
}

// EvidenceRef records a result submission from a player, kept for the
// adjudicators to review.
type EvidenceRef struct {
	PlayerID    int64     `json:"playerId"`
	Ref         string    `json:"ref"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// ActiveMatch is the draft and settlement coordination record. All
// transitions on it are pure; the service layer owns locking, persistence
// and timers.
type ActiveMatch struct {
	ID          uuid.UUID                 `json:"id"`
	Mode        Mode                      `json:"mode"`
	Roster      []PlayerSnapshot          `json:"roster"`
	Captains    map[Side]int64            `json:"captains"`
	Phase       Phase                     `json:"phase"`
	Turn        Side                      `json:"turn"`
	Available   []string                  `json:"available"`
	FinalMap    string                    `json:"finalMap"`
	Teams       map[Side][]PlayerSnapshot `json:"teams"`
	Unassigned  []PlayerSnapshot          `json:"unassigned"`
	RatingDelta int                       `json:"ratingDelta"`
	Evidence    []EvidenceRef             `json:"evidence"`
	Voided      []int64                   `json:"voided"`

	MessageRefs     map[int64]MessageRef `json:"messageRefs"`
	AdjudicatorRefs map[int64]MessageRef `json:"adjudicatorRefs"`
}

// ContainsPlayer reports roster membership.
func (am *ActiveMatch) ContainsPlayer(playerID int64) bool {
	for _, p := range am.Roster {
		if p.PlayerID == playerID {
			return true
		}
	}
	return false
}

// TurnHolder returns the player whose action is awaited.
func (am *ActiveMatch) TurnHolder() int64 {
	return am.Captains[am.Turn]
}

// SideOf returns the side a player was drafted to, if any.
func (am *ActiveMatch) SideOf(playerID int64) (Side, bool) {
	for side, team := range am.Teams {
		for _, p := range team {
			if p.PlayerID == playerID {
				return side, true
			}
		}
	}
	return "", false
}

// IsVoided reports whether the player's settlement was struck by an
// adjudicator.
func (am *ActiveMatch) IsVoided(playerID int64) bool {
	for _, id := range am.Voided {
		if id == playerID {
			return true
		}
	}
	return false
}

// ApplyBan removes one map on behalf of side. When a single map remains it
// becomes the final map: duels are then done, team modes move to the pick
// phase with the T captain up first.
func (am *ActiveMatch) ApplyBan(side Side, mapName string) error {
	if am.Phase != PhaseBan {
		return ErrWrongPhase
	}
	if side != am.Turn {
		return ErrNotYourTurn
	}
	idx := -1
	for i, m := range am.Available {
		if m == mapName {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownMap
	}
	am.Available = append(am.Available[:idx], am.Available[idx+1:]...)
	if len(am.Available) == 1 {
		am.FinalMap = am.Available[0]
		am.Available = nil
		if am.Mode == Mode1x1 {
			am.Phase = PhaseDone
		} else {
			am.Phase = PhasePick
			am.Turn = SideT
		}
		return nil
	}
	am.Turn = am.Turn.Opposite()
	return nil
}

// ApplyPick assigns an undrafted player to side's team. When one player is
// left after a pick they go to the opposite team and the draft completes.
func (am *ActiveMatch) ApplyPick(side Side, playerID int64) error {
	if am.Phase != PhasePick {
		return ErrWrongPhase
	}
	if side != am.Turn {
		return ErrNotYourTurn
	}
	idx := -1
	for i, p := range am.Unassigned {
		if p.PlayerID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownPlayer
	}
	picked := am.Unassigned[idx]
	am.Unassigned = append(am.Unassigned[:idx], am.Unassigned[idx+1:]...)
	am.Teams[side] = append(am.Teams[side], picked)
	if len(am.Unassigned) == 1 {
		last := am.Unassigned[0]
		am.Unassigned = nil
		other := side.Opposite()
		am.Teams[other] = append(am.Teams[other], last)
		am.Phase = PhaseDone
		return nil
	}
	if len(am.Unassigned) == 0 {
		am.Phase = PhaseDone
		return nil
	}
	am.Turn = am.Turn.Opposite()
	return nil
}
