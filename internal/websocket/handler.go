package websocket

import (
	"log"
	"net/http"

	"reading-reports-backend/internal/middleware"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Restrict in production
		return true
	},
}

// HandleWebSocket upgrades HTTP connection to WebSocket. The session token
// comes from a query parameter or from the session cookie set at login.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
				tokenString = cookie.Value
			}
		}

		if tokenString == "" {
			log.Println("❌ No session token for WebSocket connection")
			http.Error(w, "Not authenticated", http.StatusUnauthorized)
			return
		}

		staffClaims, ok := middleware.ParseSessionToken(tokenString)
		if !ok {
			log.Println("❌ Invalid session token for WebSocket connection")
			http.Error(w, "Not authenticated", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("❌ WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(staffClaims.StaffID, staffClaims.Role, conn, hub)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()

		log.Printf("✅ WebSocket connection established for staff %s (%s)", staffClaims.StaffNumber, staffClaims.Role)
	}
}
