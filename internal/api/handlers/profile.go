package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yodateam/faceit-backend/internal/api/middleware"
	"github.com/yodateam/faceit-backend/internal/domain"
	"github.com/yodateam/faceit-backend/internal/service"
)

type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

type profileResponse struct {
	ID          int64   `json:"id"`
	DisplayName string  `json:"displayName"`
	GameID      string  `json:"gameId"`
	Rating      int     `json:"rating"`
	Level       int     `json:"level"`
	Matches     int     `json:"matches"`
	Wins        int     `json:"wins"`
	Winrate     float64 `json:"winrate"`
	MissedGames int     `json:"missedGames"`
	Banned      bool    `json:"banned"`
}

func toProfileResponse(p *domain.Player) profileResponse {
	return profileResponse{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		GameID:      p.GameID,
		Rating:      p.Rating,
		Level:       p.Level,
		Matches:     p.Matches,
		Wins:        p.Wins,
		Winrate:     p.Winrate(),
		MissedGames: p.MissedGames,
		Banned:      p.IsBanned(time.Now()),
	}
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	player, err := h.profileService.GetProfile(r.Context(), playerID)
	if err != nil {
		serviceError(w, "profile.Me", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(player))
}

type registerRequest struct {
	DisplayName string `json:"displayName"`
	GameID      string `json:"gameId"`
}

// Register creates the caller's player record. Retrying with an existing
// ID returns the stored profile unchanged.
func (h *ProfileHandler) Register(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR [profile.Register] failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.DisplayName == "" || req.GameID == "" {
		http.Error(w, "displayName and gameId are required", http.StatusBadRequest)
		return
	}

	player, err := h.profileService.Register(r.Context(), playerID, req.DisplayName, req.GameID)
	if err != nil {
		serviceError(w, "profile.Register", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProfileResponse(player))
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid player ID", http.StatusBadRequest)
		return
	}

	player, err := h.profileService.GetProfile(r.Context(), id)
	if err != nil {
		serviceError(w, "profile.Get", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(player))
}

func (h *ProfileHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	players, err := h.profileService.Leaderboard(r.Context(), limit)
	if err != nil {
		serviceError(w, "profile.Leaderboard", err)
		return
	}

	out := make([]profileResponse, 0, len(players))
	for i := range players {
		out = append(out, toProfileResponse(&players[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
