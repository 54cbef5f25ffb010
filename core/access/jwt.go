package access

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"

	"github.com/travelwhiz/backend/core/logger"
)

// Claims are the claims carried in a travelwhiz session token.
type Claims struct {
	Username string `json:"username"`
	Admin    bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// session tokens expire after a week, the frontend re-authenticates with the
// stored credentials
const tokenLifetime = 7 * 24 * time.Hour

// CreateToken signs a session token for the given user identity with the
// service secret.
func CreateToken(secret []byte, username string, admin bool) (string, error) {
	claims := Claims{
		Username: username,
		Admin:    admin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// NewJwtMiddleware returns a middleware handler to validate JWT bearer token.
//
// Tokens are accepted as "Authorization: Bearer" header or as
// "TravelWhiz-JWT"-cookie.
//
// This is a final handler with regards to the bearer token. It will return
// http.StatusUnauthorized when a token is available but invalid. Requests
// without any token pass through unauthenticated and fail at the
// authorization predicate of the route, if the route has one.
func NewJwtMiddleware(secret []byte) mux.MiddlewareFunc {

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth := AuthorizationFromContext(r.Context()); auth != nil { // already authorized?
				h.ServeHTTP(w, r)
				return
			}

			tokenString := ""
			bearer := r.Header.Get("Authorization")
			if len(bearer) > 0 && bearer != "null" {
				if len(bearer) >= 8 && strings.ToLower(bearer[:7]) == "bearer " {
					tokenString = bearer[7:]
				} else {
					tokenString = bearer
				}
			} else if cookie, _ := r.Cookie("TravelWhiz-JWT"); cookie != nil {
				tokenString = cookie.Value
			}
			if len(tokenString) == 0 {
				h.ServeHTTP(w, r) // no token no auth, moving on
				return
			}

			claims := Claims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, keyFunc)
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			auth := &Authorization{Username: claims.Username, Admin: claims.Admin}
			ctx := auth.ContextWithAuthorization(r.Context())
			ctx, _ = logger.ContextWithLoggerIdentity(ctx, claims.Username)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
