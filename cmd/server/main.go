package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"

	"reading-reports-backend/internal/database"
	"reading-reports-backend/internal/handlers"
	"reading-reports-backend/internal/middleware"
	"reading-reports-backend/internal/services"
	"reading-reports-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/jmoiron/sqlx"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 READING REPORTS BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("❌ DATABASE_URL environment variable is required")
	}

	if os.Getenv("APP_JWT_SECRET") == "" {
		log.Fatal("❌ APP_JWT_SECRET environment variable is required")
	}

	// Connect to database
	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ Database migrations failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	// Seed sample staff
	if err := database.SeedStaff(db); err != nil {
		log.Fatalf("❌ Staff seeding failed: %v", err)
	}

	// Escalation mailer is optional: without SMTP configuration the
	// escalation sweep still runs, every send fails and gets skipped.
	mailer, err := services.NewMailerFromEnv()
	if err != nil {
		log.Printf("⚠️  Escalation email disabled: %v", err)
		mailer = nil
	} else {
		log.Println("✅ Escalation mailer configured")
	}

	// Anomaly event hub for supervisor/engineer dashboards
	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	r := newRouter(db, mailer, wsHub)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", port)
	log.Println("═══════════════════════════════════════════════════════════════════")

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("❌ Server failed to start: %v", err)
	}
}

func newRouter(db *sqlx.DB, mailer *services.Mailer, wsHub *websocket.Hub) chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// CORS with credentials so the session cookie survives cross-origin
	// frontend development setups
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// WebSocket endpoint (authentication handled in handler via query param or cookie)
	r.Get("/ws", websocket.HandleWebSocket(wsHub))

	r.Route("/api", func(r chi.Router) {
		// Authentication routes (no session required)
		r.Post("/auth/login", handlers.Login(db))
		r.Post("/auth/logout", handlers.Logout())
		r.Post("/auth/reset-pin", handlers.ResetPin(db))

		// Anomaly types are a static list
		r.Get("/anomalies/types", handlers.GetAnomalyTypes())

		// Session-scoped routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			r.Post("/auth/change-pin", handlers.ChangePin(db))
			r.Get("/auth/profile", handlers.GetProfile(db))

			// Meter readings
			r.Get("/readings", handlers.GetReadings(db))
			r.Post("/readings", handlers.CreateReading(db))
			r.Put("/readings/{id}", handlers.UpdateReading(db))
			r.Post("/readings/upload", handlers.UploadReadingFile())
			r.Get("/readings/stats", handlers.GetReadingStats(db))

			// Anomalies
			r.Get("/anomalies", handlers.GetAnomalies(db))
			r.Post("/anomalies", handlers.CreateAnomaly(db, wsHub))
			r.Put("/anomalies/{id}", handlers.UpdateAnomaly(db, wsHub))
			r.Get("/anomalies/stats", handlers.GetAnomalyStats(db))

			// Reports
			r.Post("/reports/generate", handlers.GenerateReport(db))
			r.Get("/reports/dashboard-stats", handlers.GetDashboardStats(db))

			// Escalation sweep (supervisor/engineer only)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("supervisor", "engineer"))
				r.Post("/anomalies/escalate", handlers.EscalateAnomalies(db, mailer, wsHub))
			})
		})
	})

	staticDir := os.Getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "static"
	}

	// Stored spreadsheets
	uploadsDir := os.Getenv("UPLOAD_DIR")
	if uploadsDir == "" {
		uploadsDir = filepath.Join(staticDir, "uploads")
	}
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsDir))))

	// Pre-built frontend with index.html fallback
	r.NotFound(handlers.ServeSPA(staticDir))

	return r
}
