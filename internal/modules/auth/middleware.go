package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const buyerIDKey contextKey = "buyerID"

// Middleware guards buyer- and admin-facing routes. Buyer identity arrives as
// an HS256 bearer token whose subject is the buyer id; admin access uses a
// shared key checked against a bcrypt hash.
type Middleware struct {
	jwtSecret    []byte
	adminKeyHash []byte
}

func NewMiddleware(jwtSecret, adminKeyHash string) *Middleware {
	return &Middleware{jwtSecret: []byte(jwtSecret), adminKeyHash: []byte(adminKeyHash)}
}

// RequireBuyer validates the bearer token and stores the buyer id in the
// request context.
func (m *Middleware) RequireBuyer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			unauthorized(w, "missing bearer token")
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		claims := &jwt.StandardClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return m.jwtSecret, nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			unauthorized(w, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), buyerIDKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin checks the X-Admin-Key header against the configured bcrypt
// hash.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Admin-Key")
		if len(m.adminKeyHash) == 0 || key == "" {
			unauthorized(w, "admin access not available")
			return
		}
		if err := bcrypt.CompareHashAndPassword(m.adminKeyHash, []byte(key)); err != nil {
			unauthorized(w, "invalid admin key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BuyerID returns the authenticated buyer id placed by RequireBuyer.
func BuyerID(ctx context.Context) string {
	id, _ := ctx.Value(buyerIDKey).(string)
	return id
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
