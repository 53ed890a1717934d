package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	ws "github.com/gorilla/websocket"

	"github.com/yodateam/faceit-backend/internal/events"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

type WebSocketHandler struct {
	hub    *events.Hub
	secret string
}

func NewWebSocketHandler(hub *events.Hub, jwtSecret string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		secret: jwtSecret,
	}
}

func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on websocket requests, so the token
	// rides a query parameter here.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(h.secret), nil
	})
	if err != nil || !parsed.Valid {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	sub, err := claims.GetSubject()
	if err != nil {
		http.Error(w, "Invalid token claims", http.StatusUnauthorized)
		return
	}
	playerID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		http.Error(w, "Invalid player ID", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := events.NewClient(h.hub, conn, playerID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
