package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yodateam/faceit-backend/internal/api/middleware"
	"github.com/yodateam/faceit-backend/internal/domain"
	"github.com/yodateam/faceit-backend/internal/service"
)

type MatchHandler struct {
	acceptService *service.AcceptService
	draftService  *service.DraftService
}

func NewMatchHandler(acceptService *service.AcceptService, draftService *service.DraftService) *MatchHandler {
	return &MatchHandler{
		acceptService: acceptService,
		draftService:  draftService,
	}
}

type pendingResponse struct {
	ID       uuid.UUID               `json:"id"`
	Status   string                  `json:"status"`
	Mode     domain.Mode             `json:"mode"`
	Roster   []domain.PlayerSnapshot `json:"roster"`
	Accepted []int64                 `json:"accepted"`
	Deadline string                  `json:"deadline"`
}

func toPendingResponse(pm *domain.PendingMatch) pendingResponse {
	accepted := make([]int64, 0, len(pm.Accepted))
	for _, p := range pm.Roster {
		if pm.Accepted[p.PlayerID] {
			accepted = append(accepted, p.PlayerID)
		}
	}
	return pendingResponse{
		ID:       pm.ID,
		Status:   "accepting",
		Mode:     pm.Mode,
		Roster:   pm.Roster,
		Accepted: accepted,
		Deadline: pm.Deadline.UTC().Format(time.RFC3339),
	}
}

type draftResponse struct {
	ID          uuid.UUID                               `json:"id"`
	Mode        domain.Mode                             `json:"mode"`
	Phase       domain.Phase                            `json:"phase"`
	Turn        domain.Side                             `json:"turn"`
	TurnHolder  int64                                   `json:"turnHolder"`
	Captains    map[domain.Side]int64                   `json:"captains"`
	Available   []string                                `json:"available"`
	FinalMap    string                                  `json:"finalMap,omitempty"`
	Teams       map[domain.Side][]domain.PlayerSnapshot `json:"teams"`
	Unassigned  []domain.PlayerSnapshot                 `json:"unassigned"`
	RatingDelta int                                     `json:"ratingDelta"`
	Voided      []int64                                 `json:"voided,omitempty"`
}

func toDraftResponse(am *domain.ActiveMatch) draftResponse {
	return draftResponse{
		ID:          am.ID,
		Mode:        am.Mode,
		Phase:       am.Phase,
		Turn:        am.Turn,
		TurnHolder:  am.TurnHolder(),
		Captains:    am.Captains,
		Available:   am.Available,
		FinalMap:    am.FinalMap,
		Teams:       am.Teams,
		Unassigned:  am.Unassigned,
		RatingDelta: am.RatingDelta,
		Voided:      am.Voided,
	}
}

func matchID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// Get returns whichever coordination record is live for the match: the
// accept roster before everyone confirms, the draft afterwards.
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := matchID(r)
	if err != nil {
		http.Error(w, "Invalid match ID", http.StatusBadRequest)
		return
	}

	if pm, err := h.acceptService.GetPending(r.Context(), id); err == nil {
		writeJSON(w, http.StatusOK, toPendingResponse(pm))
		return
	} else if !errors.Is(err, domain.ErrMatchNotFound) {
		serviceError(w, "match.Get", err)
		return
	}

	am, err := h.draftService.Get(r.Context(), id)
	if err != nil {
		serviceError(w, "match.Get", err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftResponse(am))
}

func (h *MatchHandler) Accept(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := matchID(r)
	if err != nil {
		http.Error(w, "Invalid match ID", http.StatusBadRequest)
		return
	}

	pm, err := h.acceptService.Accept(r.Context(), playerID, id)
	if err != nil {
		serviceError(w, "match.Accept", err)
		return
	}
	writeJSON(w, http.StatusOK, toPendingResponse(pm))
}

type banRequest struct {
	Map string `json:"map"`
}

func (h *MatchHandler) Ban(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := matchID(r)
	if err != nil {
		http.Error(w, "Invalid match ID", http.StatusBadRequest)
		return
	}

	var req banRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR [match.Ban] failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	am, err := h.draftService.SubmitBan(r.Context(), playerID, id, req.Map)
	if err != nil {
		serviceError(w, "match.Ban", err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftResponse(am))
}

type pickRequest struct {
	PlayerID int64 `json:"playerId"`
}

func (h *MatchHandler) Pick(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := matchID(r)
	if err != nil {
		http.Error(w, "Invalid match ID", http.StatusBadRequest)
		return
	}

	var req pickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR [match.Pick] failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	am, err := h.draftService.SubmitPick(r.Context(), playerID, id, req.PlayerID)
	if err != nil {
		serviceError(w, "match.Pick", err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftResponse(am))
}
