package middleware

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	PlayerIDKey    contextKey = "playerID"
	AdjudicatorKey contextKey = "adjudicator"
)

// Auth validates the bearer token and stashes the player identity in the
// request context. Tokens carry the player ID as the subject and an "adj"
// flag for settlement rights.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Printf("ERROR [middleware.Auth] missing authorization header")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Printf("ERROR [middleware.Auth] invalid authorization header format")
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				log.Printf("ERROR [middleware.Auth] token validation failed: %v", err)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				log.Printf("ERROR [middleware.Auth] missing 'sub' claim in token")
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}
			playerID, err := strconv.ParseInt(sub, 10, 64)
			if err != nil {
				log.Printf("ERROR [middleware.Auth] failed to parse player ID: %v", err)
				http.Error(w, "Invalid player ID", http.StatusUnauthorized)
				return
			}

			adj, _ := claims["adj"].(bool)

			ctx := context.WithValue(r.Context(), PlayerIDKey, playerID)
			ctx = context.WithValue(ctx, AdjudicatorKey, adj)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdjudicator gates settlement routes.
func RequireAdjudicator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if adj, _ := r.Context().Value(AdjudicatorKey).(bool); !adj {
			http.Error(w, "Adjudicator access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetPlayerID(ctx context.Context) (int64, bool) {
	playerID, ok := ctx.Value(PlayerIDKey).(int64)
	return playerID, ok
}

func IsAdjudicator(ctx context.Context) bool {
	adj, _ := ctx.Value(AdjudicatorKey).(bool)
	return adj
}

// NewToken mints a signed token for a player. Used by operators issuing
// credentials out of band and by tests.
func NewToken(secret string, playerID int64, adjudicator bool, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(playerID, 10),
		"adj": adjudicator,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
