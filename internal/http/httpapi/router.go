package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"omniscore/internal/http/handlers"
	"omniscore/internal/infra"
	"omniscore/internal/middleware"
)

// Options configures the shared middleware stack.
type Options struct {
	Logger          infra.Logger
	CORSOrigins     []string
	RateLimitPerMin int
	// StaticDir is served under /static when set.
	StaticDir string
	Docs      handlers.DocsOptions
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.Metrics,
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())
	docs := handlers.NewDocs(opts.Docs)
	r.Get(docs.SpecPath, docs.ServeSpec)
	r.Get(docs.DocsPath, docs.ServePage)

	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static", http.FileServer(http.Dir(opts.StaticDir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))

		r.Route("/v1/sessions", func(r chi.Router) {
			r.Post("/", app.CreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.GetSession)
				r.Delete("/", app.DeleteSession)
				r.Patch("/draft", app.UpdateDraft)
				r.Post("/ops/{op}", app.SubmitOp)
				r.Post("/speech", app.Speech)
				r.Post("/publish", app.Publish)
				r.Post("/select/{assetID}", app.SelectAsset)
				r.Post("/upload", app.Upload)
				r.Delete("/working", app.ClearWorking)
				r.Get("/events", app.SessionEvents)
			})
		})

		r.Route("/v1/assets", func(r chi.Router) {
			r.Get("/", app.ListAssets)
			r.Get("/archive", app.ArchiveAssets)
			r.Get("/{id}", app.GetAsset)
			r.Delete("/{id}", app.DeleteAsset)
		})

		r.Get("/v1/posts", app.ListPosts)
		r.Get("/v1/posts/{id}", app.GetPost)
		r.Get("/v1/dashboard", app.Dashboard)
		r.Get("/v1/leaderboard", app.Leaderboard)
		r.Get("/v1/trends", app.ListTrends)
		r.Get("/v1/analytics", app.Analytics)

		r.Route("/v1/chat", func(r chi.Router) {
			r.Post("/", app.StartChat)
			r.Get("/{id}", app.GetChat)
			r.Post("/{id}/messages", app.SendChat)
		})
	})

	return r
}
