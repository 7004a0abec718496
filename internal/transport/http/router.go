package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DonyChristie/crux/internal/handler"
	"github.com/DonyChristie/crux/internal/httputil"
	authmw "github.com/DonyChristie/crux/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	SessionHandler *handler.SessionHandler
	AuthHandler    *handler.AuthHandler
	PostHandler    *handler.PostHandler
	CommentHandler *handler.CommentHandler
	FeedHandler    *handler.FeedHandler
	ProfileHandler *handler.ProfileHandler
	DraftHandler   *handler.DraftHandler
	StreamHandler  *handler.StreamHandler
	JWTSecret      string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Session creation is the only other public endpoint; everything
	// else needs the token it returns.
	r.Post("/session", cfg.SessionHandler.Create)

	r.Group(func(r chi.Router) {
		r.Use(authmw.SessionAuthMiddleware(cfg.JWTSecret))

		r.Delete("/session", cfg.SessionHandler.Destroy)
		r.Get("/state", cfg.SessionHandler.State)
		r.Get("/stream", cfg.StreamHandler.Stream)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", cfg.AuthHandler.SignIn)
			r.Post("/signup", cfg.AuthHandler.SignUp)
			r.Post("/google", cfg.AuthHandler.SignInGoogle)
			r.Post("/signout", cfg.AuthHandler.SignOut)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Post("/", cfg.PostHandler.Create)
			r.Post("/close", cfg.PostHandler.Close)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", cfg.PostHandler.Delete)
				r.Put("/rating", cfg.PostHandler.Rate)
				r.Post("/open", cfg.PostHandler.Open)

				r.Route("/comments", func(r chi.Router) {
					r.Post("/", cfg.CommentHandler.Add)
					r.Put("/{commentID}", cfg.CommentHandler.Edit)
					r.Delete("/{commentID}", cfg.CommentHandler.Delete)
					r.Put("/{commentID}/rating", cfg.CommentHandler.Rate)
				})
			})
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Post("/{id}/open", cfg.ProfileHandler.Open)
			r.Post("/close", cfg.ProfileHandler.Close)
		})

		r.Route("/feed", func(r chi.Router) {
			r.Get("/", cfg.FeedHandler.Get)
			r.Put("/sort", cfg.FeedHandler.SetSort)
			r.Put("/tags", cfg.FeedHandler.SetTags)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Put("/sort", cfg.FeedHandler.SetTagSort)
			r.Put("/search", cfg.FeedHandler.SearchTags)
		})

		r.Put("/prefs/theme", cfg.FeedHandler.SetTheme)

		r.Route("/drafts", func(r chi.Router) {
			r.Get("/", cfg.DraftHandler.List)
			r.Put("/", cfg.DraftHandler.Save)
			r.Get("/{id}", cfg.DraftHandler.Get)
			r.Post("/{id}/load", cfg.DraftHandler.Load)
			r.Delete("/{id}", cfg.DraftHandler.Delete)
		})

		r.Put("/compose", cfg.DraftHandler.SetCompose)
	})

	return r
}
