package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/yodateam/faceit-backend/internal/api/middleware"
	"github.com/yodateam/faceit-backend/internal/domain"
	"github.com/yodateam/faceit-backend/internal/service"
)

type SettlementHandler struct {
	settlementService *service.SettlementService
}

func NewSettlementHandler(settlementService *service.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementService: settlementService}
}

type evidenceRequest struct {
	Ref string `json:"ref"`
}

// Evidence lets a rostered player file a result claim once the draft is
// complete.
func (h *SettlementHandler) Evidence(w http.ResponseWriter, r *http.Request) {
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

	var req evidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR [settlement.Evidence] failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Ref == "" {
		http.Error(w, "Evidence ref required", http.StatusBadRequest)
		return
	}

	am, err := h.settlementService.SubmitResultEvidence(r.Context(), playerID, id, req.Ref)
	if err != nil {
		serviceError(w, "settlement.Evidence", err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftResponse(am))
}

type confirmRequest struct {
	Winner string `json:"winner"`
}

// Confirm settles the match for one side. Adjudicator only.
func (h *SettlementHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := matchID(r)
	if err != nil {
		http.Error(w, "Invalid match ID", http.StatusBadRequest)
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR [settlement.Confirm] failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var winner domain.Side
	switch domain.Side(req.Winner) {
	case domain.SideCT, domain.SideT:
		winner = domain.Side(req.Winner)
	default:
		http.Error(w, "Winner must be \"ct\" or \"t\"", http.StatusBadRequest)
		return
	}

	am, err := h.settlementService.ConfirmWin(r.Context(), id, winner)
	if err != nil {
		serviceError(w, "settlement.Confirm", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matchId":     am.ID,
		"winner":      winner,
		"ratingDelta": am.RatingDelta,
		"finalMap":    am.FinalMap,
	})
}

// Cancel voids the whole match without rating movement. Adjudicator only.
func (h *SettlementHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := matchID(r)
	if err != nil {
		http.Error(w, "Invalid match ID", http.StatusBadRequest)
		return
	}

	if err := h.settlementService.CancelAll(r.Context(), id); err != nil {
		serviceError(w, "settlement.Cancel", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matchId": id,
		"status":  domain.StatusCancelled,
	})
}

type nullifyRequest struct {
	PlayerID int64 `json:"playerId"`
}

// Nullify marks one player's result as void. Adjudicator only.
func (h *SettlementHandler) Nullify(w http.ResponseWriter, r *http.Request) {
	id, err := matchID(r)
	if err != nil {
		http.Error(w, "Invalid match ID", http.StatusBadRequest)
		return
	}

	var req nullifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR [settlement.Nullify] failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	am, err := h.settlementService.NullifyOne(r.Context(), id, req.PlayerID)
	if err != nil {
		serviceError(w, "settlement.Nullify", err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftResponse(am))
}
