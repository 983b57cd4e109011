package middleware

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const StaffContextKey contextKey = "staff"

// SessionCookieName is the HttpOnly cookie carrying the session token.
const SessionCookieName = "session_token"

type StaffClaims struct {
	StaffID     string `json:"staff_id"`
	StaffNumber string `json:"staff_number"`
	Role        string `json:"role"`
}

// extractToken returns the session token from the request: the session
// cookie first, then an Authorization Bearer header.
func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// ParseSessionToken validates a signed session token and returns the staff
// claims carried in it.
func ParseSessionToken(tokenString string) (StaffClaims, bool) {
	jwtSecret := os.Getenv("APP_JWT_SECRET")
	if jwtSecret == "" {
		log.Println("❌ JWT secret not configured")
		return StaffClaims{}, false
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return StaffClaims{}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return StaffClaims{}, false
	}

	staffID, _ := claims["staff_id"].(string)
	staffNumber, _ := claims["staff_number"].(string)
	role, _ := claims["role"].(string)
	if staffID == "" || role == "" {
		return StaffClaims{}, false
	}

	return StaffClaims{StaffID: staffID, StaffNumber: staffNumber, Role: role}, true
}

// Auth middleware validates the session token and adds staff claims to context
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r)
		if tokenString == "" {
			log.Printf("❌ No session token: %s %s", r.Method, r.URL.Path)
			http.Error(w, "Not authenticated", http.StatusUnauthorized)
			return
		}

		staffClaims, ok := ParseSessionToken(tokenString)
		if !ok {
			log.Printf("❌ Invalid session token: %s %s", r.Method, r.URL.Path)
			http.Error(w, "Not authenticated", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), StaffContextKey, staffClaims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole middleware checks that the staff member holds one of the given
// roles (must be used after Auth)
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			staffClaims, ok := r.Context().Value(StaffContextKey).(StaffClaims)
			if !ok {
				log.Println("❌ Staff claims not found in context")
				http.Error(w, "Not authenticated", http.StatusUnauthorized)
				return
			}

			for _, role := range roles {
				if staffClaims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			log.Printf("❌ Insufficient permissions: need one of %v, got %s", roles, staffClaims.Role)
			http.Error(w, "Permission denied", http.StatusForbidden)
		})
	}
}

// GetStaffFromContext extracts staff claims from request context
func GetStaffFromContext(r *http.Request) (StaffClaims, bool) {
	staffClaims, ok := r.Context().Value(StaffContextKey).(StaffClaims)
	return staffClaims, ok
}
