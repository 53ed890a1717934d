package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/yodateam/faceit-backend/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// serviceError maps the domain error taxonomy onto HTTP statuses. Unmapped
// errors are internal and logged with the caller's tag.
func serviceError(w http.ResponseWriter, tag string, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownMode),
		errors.Is(err, domain.ErrUnknownSlot),
		errors.Is(err, domain.ErrUnknownMap),
		errors.Is(err, domain.ErrUnknownPlayer):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrMatchNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrAlreadyInLobby),
		errors.Is(err, domain.ErrSlotFull),
		errors.Is(err, domain.ErrNotInLobby),
		errors.Is(err, domain.ErrNotInMatch),
		errors.Is(err, domain.ErrNotYourTurn),
		errors.Is(err, domain.ErrWrongPhase),
		errors.Is(err, domain.ErrPlayerBanned):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("ERROR [%s]: %v", tag, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
