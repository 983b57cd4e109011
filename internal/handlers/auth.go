package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"reading-reports-backend/internal/middleware"
	"reading-reports-backend/internal/models"
	"reading-reports-backend/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

const sessionLifetime = 7 * 24 * time.Hour

type LoginRequest struct {
	StaffNumber string `json:"staff_number"`
	Pin         string `json:"pin"`
}

// issueSessionToken signs a session token carrying the staff identity.
func issueSessionToken(staff *models.Staff) (string, error) {
	jwtSecret := os.Getenv("APP_JWT_SECRET")
	if jwtSecret == "" {
		return "", jwt.ErrInvalidKey
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"staff_id":     staff.ID,
		"staff_number": staff.StaffNumber,
		"role":         staff.Role,
		"iat":          time.Now().Unix(),
		"exp":          time.Now().Add(sessionLifetime).Unix(),
	})
	return token.SignedString([]byte(jwtSecret))
}

func setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// classifyLogin maps a staff lookup result and submitted PIN onto the login
// response. Unknown staff number and PIN mismatch share one message so staff
// numbers cannot be enumerated; any other lookup error is a server fault,
// not bad credentials. The active check runs only after the PIN passes.
func classifyLogin(staff *models.Staff, lookupErr error, pin string) (int, string) {
	if lookupErr != nil && lookupErr != sql.ErrNoRows {
		return http.StatusInternalServerError, "Database error"
	}
	if lookupErr == sql.ErrNoRows || !staff.CheckPin(pin) {
		return http.StatusUnauthorized, "Invalid staff number or PIN"
	}
	if !staff.IsActive {
		return http.StatusUnauthorized, "Account is deactivated"
	}
	return http.StatusOK, ""
}

func Login(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.StaffNumber == "" || req.Pin == "" {
			utils.RespondError(w, http.StatusBadRequest, "Staff number and PIN are required")
			return
		}

		log.Printf("🔐 Login attempt for staff number: %s", req.StaffNumber)

		var staff models.Staff
		err := db.Get(&staff, "SELECT * FROM staff WHERE staff_number = $1", req.StaffNumber)
		if status, message := classifyLogin(&staff, err, req.Pin); status != http.StatusOK {
			log.Printf("❌ Login rejected for %s: %s", req.StaffNumber, message)
			utils.RespondError(w, status, message)
			return
		}

		now := time.Now()
		if _, err := db.Exec("UPDATE staff SET last_login = $1 WHERE id = $2", now, staff.ID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update last login")
			return
		}
		staff.LastLogin = &now

		tokenString, err := issueSessionToken(&staff)
		if err != nil {
			log.Printf("❌ Failed to create session token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create session")
			return
		}

		setSessionCookie(w, tokenString, now.Add(sessionLifetime))

		log.Printf("✅ Login successful: %s %s (%s)", staff.StaffNumber, staff.Name, staff.Role)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"message": "Login successful",
			"staff":   staff.ToStaffResponse(),
			"token":   tokenString,
		})
	}
}

func Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Expire the session cookie
		setSessionCookie(w, "", time.Unix(0, 0))
		utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
	}
}

type ResetPinRequest struct {
	StaffNumber    string `json:"staff_number"`
	SecurityAnswer string `json:"security_answer"`
	NewPin         string `json:"new_pin"`
}

// ResetPin validates the security answer for a staff member. The supplied
// new PIN is accepted but never persisted: the PIN is always derived from
// the staff number, so this call is intentionally inert beyond validation.
func ResetPin(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetPinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.StaffNumber == "" || req.SecurityAnswer == "" || req.NewPin == "" {
			utils.RespondError(w, http.StatusBadRequest, "All fields are required")
			return
		}

		var staff models.Staff
		err := db.Get(&staff, "SELECT * FROM staff WHERE staff_number = $1", req.StaffNumber)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, "Staff member not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		if staff.SecurityAnswer == nil ||
			bcrypt.CompareHashAndPassword([]byte(*staff.SecurityAnswer), []byte(req.SecurityAnswer)) != nil {
			utils.RespondError(w, http.StatusUnauthorized, "Incorrect security answer")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "PIN reset successful"})
	}
}

type ChangePinRequest struct {
	CurrentPin string `json:"current_pin"`
	NewPin     string `json:"new_pin"`
}

// ChangePin validates the current PIN for the authenticated staff member.
// Like ResetPin it is inert: the derived PIN cannot actually change.
func ChangePin(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetStaffFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		var req ChangePinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.CurrentPin == "" || req.NewPin == "" {
			utils.RespondError(w, http.StatusBadRequest, "Current PIN and new PIN are required")
			return
		}

		var staff models.Staff
		if err := db.Get(&staff, "SELECT * FROM staff WHERE id = $1", claims.StaffID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Staff member not found")
			return
		}

		if !staff.CheckPin(req.CurrentPin) {
			utils.RespondError(w, http.StatusUnauthorized, "Current PIN is incorrect")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "PIN changed successfully"})
	}
}

func GetProfile(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetStaffFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		var staff models.Staff
		err := db.Get(&staff, "SELECT * FROM staff WHERE id = $1", claims.StaffID)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, "Staff member not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"staff": staff.ToStaffResponse()})
	}
}
