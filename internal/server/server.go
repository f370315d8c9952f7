package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/chorepoints/internal/handler"
	"github.com/dukerupert/chorepoints/internal/ledger"
	"github.com/dukerupert/chorepoints/internal/middleware"
	"github.com/dukerupert/chorepoints/internal/reset"
	"github.com/dukerupert/chorepoints/internal/store"
	ws "github.com/dukerupert/chorepoints/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	accountH       *handler.AccountHandler
	categoryH      *handler.CategoryHandler
	taskH          *handler.TaskHandler
	rewardH        *handler.RewardHandler
	notificationH  *handler.NotificationHandler
	accountStore   *store.AccountStore
	sessionStore   *store.SessionStore
	resetScheduler *reset.Scheduler
	rateLimiter    *middleware.RateLimiter
	logger         *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	accountStore := store.NewAccountStore(db)
	sessionStore := store.NewSessionStore(db)
	categoryStore := store.NewCategoryStore(db)
	taskStore := store.NewTaskStore(db)
	rewardStore := store.NewRewardStore(db)
	notificationStore := store.NewNotificationStore(db)

	engine := ledger.NewEngine(db, logger.With("component", "ledger"))
	scheduler := reset.NewScheduler(taskStore, rewardStore, logger.With("component", "reset"))

	return &Server{
		db:             db,
		hub:            hub,
		accountH:       handler.NewAccountHandler(accountStore, sessionStore, logger.With("component", "account")),
		categoryH:      handler.NewCategoryHandler(categoryStore, logger.With("component", "category")),
		taskH:          handler.NewTaskHandler(taskStore, engine, hub, logger.With("component", "task")),
		rewardH:        handler.NewRewardHandler(rewardStore, accountStore, engine, hub, logger.With("component", "reward")),
		notificationH:  handler.NewNotificationHandler(notificationStore, engine, hub, logger.With("component", "notification")),
		accountStore:   accountStore,
		sessionStore:   sessionStore,
		resetScheduler: scheduler,
		rateLimiter:    middleware.NewRateLimiter(),
		logger:         logger,
	}
}

// ResetScheduler returns the reset sweep scheduler for lifecycle control.
func (s *Server) ResetScheduler() *reset.Scheduler {
	return s.resetScheduler
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /register", s.rateLimitedHandler(s.accountH.Register))
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.accountH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.accountStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.accountH.Logout)
	mux.HandleFunc("GET /api/points", s.accountH.GetPoints)

	// Kid management (parent only)
	mux.Handle("GET /api/kids", middleware.RequireParent(http.HandlerFunc(s.accountH.ListKids)))
	mux.Handle("DELETE /api/kids/{id}", middleware.RequireParent(http.HandlerFunc(s.accountH.DeleteKid)))

	// Category API routes (parent only)
	mux.Handle("POST /api/categories", middleware.RequireParent(http.HandlerFunc(s.categoryH.Create)))
	mux.Handle("GET /api/categories", middleware.RequireParent(http.HandlerFunc(s.categoryH.List)))
	mux.Handle("PUT /api/categories/{id}", middleware.RequireParent(http.HandlerFunc(s.categoryH.Update)))
	mux.Handle("DELETE /api/categories/{id}", middleware.RequireParent(http.HandlerFunc(s.categoryH.Delete)))

	// Task API routes
	mux.Handle("POST /api/tasks", middleware.RequireParent(http.HandlerFunc(s.taskH.Create)))
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.Handle("PUT /api/tasks/{id}", middleware.RequireParent(http.HandlerFunc(s.taskH.Update)))
	mux.Handle("DELETE /api/tasks/{id}", middleware.RequireParent(http.HandlerFunc(s.taskH.Delete)))
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)

	// Reward API routes
	mux.Handle("POST /api/rewards", middleware.RequireParent(http.HandlerFunc(s.rewardH.Create)))
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.Handle("PUT /api/rewards/{id}", middleware.RequireParent(http.HandlerFunc(s.rewardH.Update)))
	mux.Handle("DELETE /api/rewards/{id}", middleware.RequireParent(http.HandlerFunc(s.rewardH.Delete)))
	mux.HandleFunc("POST /api/rewards/{id}/claim", s.rewardH.Claim)

	// Notification API routes
	mux.HandleFunc("GET /api/notifications", s.notificationH.List)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.notificationH.MarkRead)
	mux.Handle("POST /api/notifications/{id}/audit", middleware.RequireParent(http.HandlerFunc(s.notificationH.Audit)))

	// WebSocket event stream
	mux.HandleFunc("GET /ws", ws.Handle(s.hub))
}
