package api

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/lostfound/internal/service"
)

// DefaultMaxUploadBytes caps multipart request bodies.
const DefaultMaxUploadBytes = 5 << 20

// Services are the dependencies the handlers call into.
type Services struct {
	DB          *sqlx.DB
	Directory   *service.Directory
	Credentials *service.Credentials
	Catalog     *service.Catalog
}

// Options tune the HTTP layer.
type Options struct {
	MaxUploadBytes int64
	CORSOrigins    []string
}

// NewRouter creates the API router with all endpoints and middleware registered.
func NewRouter(svc Services, opts Options) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}

	mux := http.NewServeMux()

	authHandler := &AuthHandler{Directory: svc.Directory, Credentials: svc.Credentials}
	itemsHandler := &ItemsHandler{Catalog: svc.Catalog, MaxUploadBytes: opts.MaxUploadBytes}
	usersHandler := &UsersHandler{Directory: svc.Directory, Catalog: svc.Catalog}
	healthHandler := &HealthHandler{DB: svc.DB}

	requireUser := RequireUser(svc.Credentials)

	mux.HandleFunc("GET /healthz", healthHandler.Check)

	// Public: registration and login.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Items: reads are public, writes need a Basic token.
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/search", itemsHandler.Search)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.HandleFunc("GET /api/items/{id}/image", itemsHandler.GetImage)
	mux.Handle("POST /api/items", requireUser(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("PUT /api/items/{id}", requireUser(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", requireUser(http.HandlerFunc(itemsHandler.Delete)))

	mux.HandleFunc("GET /api/users/{id}/items", usersHandler.ListItems)

	var handler http.Handler = mux
	if len(opts.CORSOrigins) > 0 {
		handler = cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		})(handler)
	}
	handler = middleware.Recoverer(handler)
	handler = LoggingMiddleware(handler)
	handler = middleware.RealIP(handler)
	handler = middleware.RequestID(handler)
	return handler
}
