package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hetaoshu/hetaoshu-web/internal/handler"
	mw "github.com/hetaoshu/hetaoshu-web/internal/middleware"
	"github.com/hetaoshu/hetaoshu-web/internal/ratelimiter"
	"github.com/hetaoshu/hetaoshu-web/internal/setup"
	"github.com/hetaoshu/hetaoshu-web/internal/validation"
	"github.com/hetaoshu/hetaoshu-web/web"
)

const rateLimiterExpiration = 1 * time.Hour

// New creates the router with every page of the site.
func New(deps *setup.Dependencies) chi.Router {
	r := chi.NewRouter()
	h := deps.Handler
	auth := deps.Auth
	public := deps.Public

	r.Use(chimw.RequestID)
	r.Use(mw.RealIP(mw.ParseTrustedProxies(public.TrustedProxies)))
	r.Use(chimw.Recoverer)
	r.Use(mw.Metrics)
	r.Use(mw.SecurityHeadersWithCSP(public.SecureCookies, mw.DefaultCSP))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handler.HealthzHandler)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))

	csrfCfg := mw.CSRFConfig{
		SecureCookies:    public.SecureCookies,
		MaxMultipartSize: validation.CalculateMaxRequestSize(validation.Limits{MaxImages: public.MaxImages, MaxImageSize: public.MaxImageSize}),
	}

	// One budget per client across every auth form.
	authLimit := mw.RateLimit(ratelimiter.New(public.AuthRateLimit, public.AuthRateBurst, rateLimiterExpiration), mw.GetIP)

	r.Group(func(r chi.Router) {
		r.Use(auth.LoadSession())

		// Scripts on other origins may read the comment tree.
		r.Group(func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: []string{"https://*", "http://*"},
				AllowedMethods: []string{http.MethodGet, http.MethodOptions},
				AllowedHeaders: []string{"Accept"},
				MaxAge:         300,
			}))
			r.Get("/themes/{id}/reply_tree", h.ReplyTreeJSONHandler)
			r.Options("/themes/{id}/reply_tree", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.GenerateCSRFToken(csrfCfg))
			r.Use(mw.ValidateCSRFToken(csrfCfg))

			// Public pages
			r.Get("/", h.IndexGetHandler)
			r.Get("/feed", h.FeedGetHandler)
			r.Get("/themes/{id}", h.ThemeGetHandler)
			r.Get("/posts/{id}", h.PostGetHandler)

			// Guest-only pages
			r.Group(func(r chi.Router) {
				r.Use(auth.GuestOnly())
				r.Get("/login", h.LoginGetHandler)
				r.With(authLimit).Post("/login", h.LoginPostHandler)
				r.Get("/send-code", h.SendCodeGetHandler)
				r.With(authLimit).Post("/send-code", h.SendCodePostHandler)
				r.Get("/set-password", h.SetPasswordGetHandler)
				r.With(authLimit).Post("/set-password", h.SetPasswordPostHandler)
			})

			// Authenticated pages
			r.Group(func(r chi.Router) {
				r.Use(auth.NeedAuth())
				r.Post("/logout", h.LogoutHandler)

				r.Get("/posts/create", h.PostCreateGetHandler)
				r.Post("/posts/create", h.PostCreatePostHandler)
				r.Get("/posts/{id}/edit", h.PostEditGetHandler)
				r.Post("/posts/{id}/edit", h.PostEditPostHandler)
				r.Post("/posts/{id}/delete", h.PostDeleteHandler)

				r.Post("/themes/{id}/comments", h.CommentPostHandler)
				r.Post("/themes/{id}/comments/{cid}/delete", h.CommentDeleteHandler)

				r.Get("/profile", h.ProfileGetHandler)
				r.Post("/profile", h.ProfilePostHandler)
				r.Post("/profile/password", h.ProfilePasswordPostHandler)

				r.Get("/messages", h.MessagesGetHandler)
			})
		})
	})

	return r
}
