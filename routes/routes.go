package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/smart-city-assistant/app"
	"github.com/upb/smart-city-assistant/handlers"
	"github.com/upb/smart-city-assistant/internal/observability"
	"github.com/upb/smart-city-assistant/middleware"
	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/utils"
	"go.uber.org/zap"
)

// Rate limit scopes
const (
	ScopeAuth = "auth"
	ScopeLLM  = "llm"
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Feedback      *handlers.FeedbackHandler
	Announcements *handlers.AnnouncementHandler
	Chat          *handlers.ChatHandler
	Policy        *handlers.PolicyHandler
	EcoTips       *handlers.EcoTipsHandler
	Dashboard     *handlers.DashboardHandler
}

// Options holds the cross-cutting router settings
type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	Auth           *middleware.AuthMiddleware
	Limiter        middleware.RateChecker
	Logger         *zap.Logger
}

// SetupRoutes builds the handlers from deps and returns the router
func SetupRoutes(deps *app.Dependencies) http.Handler {
	logger := deps.Logger

	h := Handlers{
		Health:        handlers.NewHealthHandler(deps.DB.DB, deps.Gateway, logger),
		Auth:          handlers.NewAuthHandler(deps.Identity, logger),
		Feedback:      handlers.NewFeedbackHandler(deps.FeedbackService, logger),
		Announcements: handlers.NewAnnouncementHandler(deps.AnnouncementService, logger),
		Chat:          handlers.NewChatHandler(deps.ChatService, logger),
		Policy:        handlers.NewPolicyHandler(deps.PolicyService, logger),
		EcoTips:       handlers.NewEcoTipsHandler(deps.EcoTipsService, logger),
		Dashboard:     handlers.NewDashboardHandler(deps.DashboardService, logger),
	}

	return NewRouter(Options{
		AllowedOrigins: deps.Config.CORS.AllowedOrigins,
		RequestTimeout: deps.Config.Server.RequestTimeout,
		Auth:           deps.AuthMiddleware,
		Limiter:        deps.RateLimiter,
		Logger:         logger,
	}, h)
}

// NewRouter configures all application routes and middleware
func NewRouter(opts Options, h Handlers) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(opts.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authn := opts.Auth.RequireAuth
	anyRole := opts.Auth.RequireAnyRole(models.RoleUser, models.RoleAuthority)
	citizen := opts.Auth.RequireRole(models.RoleUser)
	authority := opts.Auth.RequireRole(models.RoleAuthority)

	authLimit := limit(opts, ScopeAuth)
	llmLimit := limit(opts, ScopeLLM)

	r.Get("/", h.Health.HandleRoot)
	r.Get("/health", h.Health.HandleHealth)
	r.Get("/health/ready", h.Health.HandleReadiness)

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/health", h.Auth.HandleHealth)

		r.Group(func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/register/user", h.Auth.HandleRegisterUser)
			r.Post("/register/authority", h.Auth.HandleRegisterAuthority)
			r.Post("/login", h.Auth.HandleLogin)
			r.Post("/verify-token", h.Auth.HandleVerifyToken)
		})

		r.With(authn).Get("/me", h.Auth.HandleMe)
	})

	r.Route("/api/feedback", func(r chi.Router) {
		r.Use(authn)
		r.With(citizen).Post("/submit", h.Feedback.HandleSubmit)
		r.With(citizen).Get("/my", h.Feedback.HandleListMine)
		r.With(authority).Get("/manage", h.Feedback.HandleManage)
		r.With(authority).Patch("/{id}", h.Feedback.HandleUpdateStatus)
		r.With(anyRole).Get("/stats", h.Feedback.HandleStats)
	})

	r.Route("/api/announcements", func(r chi.Router) {
		r.Use(authn)
		r.With(anyRole).Get("/", h.Announcements.HandleList)
		r.With(authority).Post("/", h.Announcements.HandleCreate)
		r.With(authority).Delete("/{id}", h.Announcements.HandleDelete)
	})

	r.Route("/api/chat", func(r chi.Router) {
		r.Use(authn, anyRole)
		r.With(llmLimit).Post("/ask", h.Chat.HandleAsk)
		r.Get("/history", h.Chat.HandleHistory)
		r.Delete("/history", h.Chat.HandleClear)
	})

	r.Route("/api/policy", func(r chi.Router) {
		r.Use(authn, anyRole)
		r.With(llmLimit).Post("/summarize", h.Policy.HandleSummarize)
		r.With(llmLimit).Post("/summarize-file", h.Policy.HandleSummarizeFile)
		r.Get("/categories", h.Policy.HandleCategories)
	})

	r.Route("/api/eco-tips", func(r chi.Router) {
		r.With(llmLimit).Get("/generate", h.EcoTips.HandleGenerate)
		r.Get("/popular-topics", h.EcoTips.HandlePopularTopics)
	})

	r.Route("/api/dashboard", func(r chi.Router) {
		r.Get("/cities", h.Dashboard.HandleCities)
		r.Get("/city/{name}", h.Dashboard.HandleCity)
		r.With(llmLimit).Get("/city/{name}/report", h.Dashboard.HandleReport)
		r.Get("/kpi-history/{name}", h.Dashboard.HandleKPIHistory)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r
}

func limit(opts Options, scope string) func(http.Handler) http.Handler {
	if opts.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(opts.Limiter, scope, opts.Logger)
}
