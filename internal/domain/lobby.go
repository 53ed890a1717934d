package domain

// Mode identifies a matchmaking queue by team size.
type Mode string

const (
	Mode1x1 Mode = "1x1"
	Mode2x2 Mode = "2x2"
	Mode5x5 Mode = "5x5"
)

// SlotsPerMode is the number of parallel lobby slots each mode exposes.
const SlotsPerMode = 10

// Modes lists every queue in display order.
var Modes = []Mode{Mode1x1, Mode2x2, Mode5x5}

// ParseMode validates a mode string from the outside world.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Mode1x1, Mode2x2, Mode5x5:
		return Mode(s), nil
	}
	return "", ErrUnknownMode
}

// Capacity returns the full roster size for the mode.
func (m Mode) Capacity() int {
	switch m {
	case Mode1x1:
		return 2
	case Mode2x2:
		return 4
	case Mode5x5:
		return 10
	}
	return 0
}

// TeamSize returns players per side.
func (m Mode) TeamSize() int {
	return m.Capacity() / 2
}

// LobbySlot is one numbered queue position within a mode. Slots fill
// independently; a full slot spawns a pending match and resets.
type LobbySlot struct {
	Mode    Mode             `json:"mode"`
	Index   int              `json:"index"`
	Players []PlayerSnapshot `json:"players"`
}

// Contains reports whether the player already occupies this slot.
func (s *LobbySlot) Contains(playerID int64) bool {
	for _, p := range s.Players {
		if p.PlayerID == playerID {
			return true
		}
	}
	return false
}

// IsFull reports whether the slot reached mode capacity.
func (s *LobbySlot) IsFull() bool {
	return len(s.Players) >= s.Mode.Capacity()
}
