package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/salon-booking/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/salon-booking/internal/http/middleware"
	"github.com/wolfman30/salon-booking/internal/session"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger   *logging.Logger
	Sessions *session.Manager
	Cookie   httpmiddleware.CookieOptions

	Auth    *handlers.AuthHandler
	Catalog *handlers.CatalogHandler
	Booking *handlers.BookingHandler
	Admin   *handlers.AdminHandler

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(app chi.Router) {
		if cfg.RateLimitRPS > 0 {
			app.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
		app.Use(httpmiddleware.Session(cfg.Sessions, cfg.Cookie))

		app.Route("/api", func(api chi.Router) {
			if cfg.Auth != nil {
				api.Route("/auth", func(r chi.Router) {
					r.Post("/login", cfg.Auth.Login)
					r.Post("/logout", cfg.Auth.Logout)
					r.Get("/me", cfg.Auth.Me)
				})
			}
			if cfg.Catalog != nil {
				api.Route("/catalog", func(r chi.Router) {
					r.Get("/sites", cfg.Catalog.Sites)
					r.Get("/services", cfg.Catalog.Services)
					r.Get("/staff", cfg.Catalog.Staff)
				})
			}
			if b := cfg.Booking; b != nil {
				api.Route("/booking", func(r chi.Router) {
					r.Get("/", b.State)
					r.Post("/site", b.SetSite())
					r.Post("/services", b.SetServices())
					r.Post("/stylist", b.SetStylist())
					r.Post("/datetime", b.SetDateTime())
					r.Post("/note", b.SetNote())
					r.Post("/next", b.Next)
					r.Post("/back", b.Back)
					r.Post("/submit", b.Submit)
					r.Post("/reset", b.Reset)
					r.Get("/slots", b.Slots)
					r.Post("/suggestions", b.Suggestions)
				})
			}
		})

		if a := cfg.Admin; a != nil {
			app.Route("/admin", func(r chi.Router) {
				r.Use(httpmiddleware.RequireToken)
				r.Get("/sites", a.Sites)
				r.Post("/sites/select", a.SelectSite)
				r.Post("/sites/refresh", a.RefreshSites)
				r.Get("/customers", a.Customers)
				r.Get("/services", a.Services)
				r.Get("/staff", a.Staff)
				r.Get("/orders", a.Orders)
				r.Post("/bookings", a.CreateBooking)
				r.Post("/orders/walk-in", a.CreateWalkIn)
			})
		}
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
