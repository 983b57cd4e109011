package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func validTestToken(t *testing.T, role string) string {
	return signTestToken(t, jwt.MapClaims{
		"staff_id":     "staff-1",
		"staff_number": "53050",
		"role":         role,
		"iat":          time.Now().Unix(),
		"exp":          time.Now().Add(time.Hour).Unix(),
	})
}

func TestAuthNoToken(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", testSecret)

	handler := Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/readings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthInvalidToken(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", testSecret)

	handler := Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached with a bad token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/readings", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthExpiredToken(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", testSecret)

	expired := signTestToken(t, jwt.MapClaims{
		"staff_id": "staff-1",
		"role":     "reader",
		"exp":      time.Now().Add(-time.Hour).Unix(),
	})

	handler := Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached with an expired token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/readings", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthValidCookie(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", testSecret)

	var got StaffClaims
	handler := Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetStaffFromContext(r)
		if !ok {
			t.Fatal("claims missing from context")
		}
		got = claims
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/readings", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: validTestToken(t, "reader")})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.StaffID != "staff-1" || got.StaffNumber != "53050" || got.Role != "reader" {
		t.Errorf("unexpected claims: %+v", got)
	}
}

func TestAuthBearerFallback(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", testSecret)

	handler := Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/readings", nil)
	req.Header.Set("Authorization", "Bearer "+validTestToken(t, "supervisor"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireRole(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", testSecret)

	tests := []struct {
		name     string
		role     string
		allowed  []string
		wantCode int
	}{
		{"supervisor allowed", "supervisor", []string{"supervisor", "engineer"}, http.StatusOK},
		{"engineer allowed", "engineer", []string{"supervisor", "engineer"}, http.StatusOK},
		{"reader denied", "reader", []string{"supervisor", "engineer"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Auth(RequireRole(tt.allowed...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))

			req := httptest.NewRequest(http.MethodPost, "/api/anomalies/escalate", nil)
			req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: validTestToken(t, tt.role)})
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	handler := RequireRole("supervisor")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached without claims")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/anomalies/escalate", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
