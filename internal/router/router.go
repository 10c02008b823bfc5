package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/openblog/openblog-api/internal/api/comment"
	"github.com/openblog/openblog-api/internal/api/post"
	"github.com/openblog/openblog-api/internal/api/user"
)

// Config carries everything the route tree needs. The authenticate
// middleware resolves bearer tokens to identities; requests without a
// usable token pass through anonymously and handlers decide per route.
type Config struct {
	UserHandler    user.Handler
	PostHandler    post.Handler
	CommentHandler comment.Handler
	Authenticate   func(http.Handler) http.Handler
	UploadsDir     string
}

func SetupRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	})

	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir)))
	r.Get("/uploads/*", fileServer.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(cfg.Authenticate)

		r.Route("/users", func(r chi.Router) {
			r.Post("/create", cfg.UserHandler.Register)
			r.Post("/login", cfg.UserHandler.Login)
			r.Get("/", cfg.UserHandler.List)
			r.Get("/{id}", cfg.UserHandler.Get)
			r.Put("/update/{id}", cfg.UserHandler.Update)
			r.Delete("/delete/{id}", cfg.UserHandler.Delete)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", cfg.PostHandler.List)
			r.Post("/create", cfg.PostHandler.Create)
			r.Get("/{id}", cfg.PostHandler.Get)
			r.Put("/{id}", cfg.PostHandler.Update)
			r.Delete("/{id}", cfg.PostHandler.Delete)
		})

		r.Route("/comments", func(r chi.Router) {
			r.Post("/create", cfg.CommentHandler.Create)
			r.Get("/post/{postId}", cfg.CommentHandler.ListByPost)
			r.Get("/{id}", cfg.CommentHandler.Get)
			r.Delete("/delete/{id}", cfg.CommentHandler.Delete)
		})
	})

	return r
}
