package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yodateam/faceit-backend/internal/api/middleware"
	"github.com/yodateam/faceit-backend/internal/domain"
	"github.com/yodateam/faceit-backend/internal/service"
)

type LobbyHandler struct {
	lobbyService *service.LobbyService
}

func NewLobbyHandler(lobbyService *service.LobbyService) *LobbyHandler {
	return &LobbyHandler{lobbyService: lobbyService}
}

type slotResponse struct {
	Mode     domain.Mode             `json:"mode"`
	Index    int                     `json:"index"`
	Capacity int                     `json:"capacity"`
	Players  []domain.PlayerSnapshot `json:"players"`
}

func toSlotResponse(slot *domain.LobbySlot) slotResponse {
	players := slot.Players
	if players == nil {
		players = []domain.PlayerSnapshot{}
	}
	return slotResponse{
		Mode:     slot.Mode,
		Index:    slot.Index,
		Capacity: slot.Mode.Capacity(),
		Players:  players,
	}
}

// List returns the whole board for a mode.
func (h *LobbyHandler) List(w http.ResponseWriter, r *http.Request) {
	mode, err := domain.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		serviceError(w, "lobby.List", err)
		return
	}

	slots, err := h.lobbyService.ListSlots(r.Context(), mode)
	if err != nil {
		serviceError(w, "lobby.List", err)
		return
	}

	out := make([]slotResponse, 0, len(slots))
	for i := range slots {
		out = append(out, toSlotResponse(&slots[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *LobbyHandler) Join(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	mode, err := domain.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		serviceError(w, "lobby.Join", err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		serviceError(w, "lobby.Join", domain.ErrUnknownSlot)
		return
	}

	slot, err := h.lobbyService.Join(r.Context(), playerID, mode, index)
	if err != nil {
		serviceError(w, "lobby.Join", err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotResponse(slot))
}

func (h *LobbyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	mode, err := domain.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		serviceError(w, "lobby.Leave", err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		serviceError(w, "lobby.Leave", domain.ErrUnknownSlot)
		return
	}

	slot, err := h.lobbyService.Leave(r.Context(), playerID, mode, index)
	if err != nil {
		serviceError(w, "lobby.Leave", err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotResponse(slot))
}
