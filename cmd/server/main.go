package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/fleetgrid/backend/internal/audit"
	"github.com/fleetgrid/backend/internal/auth"
	"github.com/fleetgrid/backend/internal/backup"
	"github.com/fleetgrid/backend/internal/config"
	"github.com/fleetgrid/backend/internal/crypto"
	"github.com/fleetgrid/backend/internal/db"
	"github.com/fleetgrid/backend/internal/device"
	"github.com/fleetgrid/backend/internal/drift"
	"github.com/fleetgrid/backend/internal/metrics"
	mw "github.com/fleetgrid/backend/internal/middleware"
	"github.com/fleetgrid/backend/internal/notifications"
	"github.com/fleetgrid/backend/internal/plugin"
	"github.com/fleetgrid/backend/internal/ws"
	pluginExporthook "github.com/fleetgrid/backend/plugins/exporthook"
	pluginSlack "github.com/fleetgrid/backend/plugins/slack"
	pluginWebhook "github.com/fleetgrid/backend/plugins/webhook"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg := config.Load()

	// Database
	ctx := context.Background()
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("WARNING: database connection failed: %v (continuing without DB)", err)
	} else {
		defer database.Close()
		if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			log.Printf("WARNING: migrations failed: %v", err)
		}
	}

	var pool *pgxpool.Pool
	if database != nil {
		pool = database.Pool
	}

	// Config-at-rest encryption
	cipher, err := crypto.NewCipher(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("Invalid encryption key: %v", err)
	}

	// JWT & Auth
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	authService := auth.NewAuthService(database, jwtService)
	authHandlers := auth.NewHandlers(authService)

	// OIDC (optional)
	oidcService, err := auth.NewOIDCService(ctx, auth.OIDCConfig{
		Issuer:       cfg.OIDCIssuer,
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCRedirectURL,
	}, database, jwtService)
	if err != nil {
		log.Printf("WARNING: OIDC setup failed: %v (OIDC disabled)", err)
	}

	// Audit Log
	auditStore := audit.NewStore(pool)
	auditHandlers := audit.NewHandlers(auditStore)

	// WebSocket Hub
	hub := ws.NewHub()
	go hub.Run()
	wsHandler := ws.NewWSHandler(hub, jwtService)

	// Notifications System
	broker, err := notifications.NewBroker(cfg)
	if err != nil {
		log.Printf("WARNING: notification broker setup failed: %v", err)
	}
	var (
		producer      *notifications.EventProducer
		notifHandlers *notifications.Handlers
	)
	if broker != nil {
		defer broker.Close() //nolint:errcheck // best-effort cleanup on shutdown

		notifStore := notifications.NewNotificationStore(pool)
		chanStore := notifications.NewChannelStore(pool)
		notifRouter := notifications.NewRouter(notifStore, chanStore, cipher, hub)
		if pool != nil {
			if err := notifRouter.LoadChannels(ctx); err != nil {
				log.Printf("WARNING: failed to load notification channels: %v", err)
			}
		}

		producer = notifications.NewEventProducer(broker)

		// Consumer: subscribes to all fleet topics and routes to ws + channels
		consumer := notifications.NewConsumer(broker, notifRouter)
		if err := consumer.Start(); err != nil {
			log.Printf("WARNING: notification consumer failed to start: %v", err)
		}

		notifHandlers = notifications.NewHandlers(notifStore, chanStore, notifRouter, cipher)
		log.Println("Notifications system initialized")
	}

	// Devices & drift detection
	deviceStore := device.NewStore(pool)
	driftStore := drift.NewStore(pool)
	driftDetector := drift.NewDetector(driftStore, producer)
	deviceHandlers := device.NewHandlers(deviceStore, hub, producer, driftDetector)
	driftHandlers := drift.NewHandlers(driftStore)

	// Backup export worker
	backupStore := backup.NewStore(pool)
	backupWorker := backup.NewWorker(backupStore, deviceStore, producer, cfg.ExportDir)
	backupWorker.Start()
	defer backupWorker.Stop()
	backupHandlers := backup.NewHandlers(backupStore, backupWorker)

	// Device metrics
	metricsStore := metrics.NewStore(pool)
	metricsHandlers := metrics.NewHandlers(metricsStore)

	// Plugin Engine
	pluginEngine := plugin.NewEngine(pool, cipher, producer)
	registerPlugins(pluginEngine)
	pluginHandlers := plugin.NewHandlers(pluginEngine)

	// Router
	r := mux.NewRouter()

	// Rate limiting: 100 req/s per IP with burst of 200
	r.Use(mw.RateLimitMiddleware(100, 200))

	// Health check (no auth)
	r.HandleFunc("/healthz", healthzHandler).Methods("GET")

	// Auth routes (no auth middleware, global rate limit applies)
	authHandlers.RegisterRoutes(r)
	if oidcService != nil && oidcService.Enabled() {
		oidcService.RegisterRoutes(r)
		log.Println("OIDC authentication enabled")
	}

	// Protected routes
	protected := r.PathPrefix("").Subrouter()
	protected.Use(mw.AuthMiddleware(jwtService))
	if pool != nil {
		protected.Use(audit.Middleware(auditStore))
	}

	authHandlers.RegisterProtectedRoutes(protected)
	deviceHandlers.RegisterRoutes(protected)
	driftHandlers.RegisterRoutes(protected)
	backupHandlers.RegisterRoutes(protected)
	metricsHandlers.RegisterRoutes(protected)
	auditHandlers.RegisterRoutes(protected)
	pluginHandlers.RegisterRoutes(protected)
	if notifHandlers != nil {
		notifHandlers.RegisterRoutes(protected)
	}

	// WebSocket (auth handled inside handler)
	wsHandler.RegisterRoutes(r)

	// Mark devices offline when agents go quiet
	go staleDeviceSweeper(ctx, deviceStore, hub, producer)

	// HTTP Server — CORS wraps the entire router so OPTIONS preflight
	// requests are handled before mux routing (which would 404 on OPTIONS).
	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        corsMiddleware(r),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("Server shutdown failed: %v", err)
		}
	}()

	log.Printf("Starting server on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed to start: %v", err)
	}

	log.Println("Server stopped")
}

func registerPlugins(engine *plugin.Engine) {
	if err := engine.Register(pluginSlack.New()); err != nil {
		log.Printf("WARNING: failed to register slack plugin: %v", err)
	}
	if err := engine.Register(pluginWebhook.New()); err != nil {
		log.Printf("WARNING: failed to register webhook plugin: %v", err)
	}
	if err := engine.Register(pluginExporthook.New()); err != nil {
		log.Printf("WARNING: failed to register exporthook plugin: %v", err)
	}
}

// staleDeviceSweeper flips devices that have not reported within the
// threshold to offline and announces the transition.
func staleDeviceSweeper(ctx context.Context, store *device.Store, hub *ws.Hub, producer *notifications.EventProducer) {
	const threshold = 5 * time.Minute

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		devices, _, err := store.List(ctx, device.ListParams{Status: device.StatusOnline, Limit: 10000})
		if err != nil {
			log.Printf("WARNING: stale device sweep failed: %v", err)
			continue
		}
		now := time.Now().UTC()
		for _, d := range devices {
			if !d.Stale(threshold, now) {
				continue
			}
			if _, err := store.UpdateStatus(ctx, d.ID, device.StatusOffline); err != nil {
				log.Printf("WARNING: failed to mark device %s offline: %v", d.ID, err)
				continue
			}
			payload, _ := json.Marshal(map[string]string{"device_id": d.ID, "status": device.StatusOffline})
			hub.Broadcast(ws.StreamEvent{Topic: "device.status", Type: "status", Payload: payload})
			if producer != nil {
				producer.PublishDeviceStatus(d.ID, d.Name, device.StatusOffline)
			}
		}
	}
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}

	origins := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		origins[strings.TrimSpace(o)] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(origins) == 1 {
			// Single origin mode: always set it (for dev convenience)
			for o := range origins {
				w.Header().Set("Access-Control-Allow-Origin", o)
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
