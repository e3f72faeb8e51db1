package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/nfcaccess/server/internal/nfcaccess/service"
)

type Dependencies struct {
	Logger         zerolog.Logger
	Addr           string
	AllowedOrigins []string

	Directory *service.Directory
	Pairing   *service.PairingEngine
	Gateway   *service.AccessGateway
	Audit     *service.AuditLog
}

type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
	router     chi.Router

	directory *service.Directory
	pairing   *service.PairingEngine
	gateway   *service.AccessGateway
	audit     *service.AuditLog
}

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger:    d.Logger,
		router:    chi.NewRouter(),
		directory: d.Directory,
		pairing:   d.Pairing,
		gateway:   d.Gateway,
		audit:     d.Audit,
	}

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := s.router
	r.Use(requestID)
	r.Use(accessLog(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleCreateUser)
			r.Get("/", s.handleListUsers)
			r.Get("/cpf/{cpf}", s.handleGetUser)
			r.Put("/cpf/{cpf}", s.handleUpdateUser)
			r.Delete("/cpf/{cpf}", s.handleDeleteUser)
		})

		r.Route("/nfc", func(r chi.Router) {
			r.Put("/link", s.handleLink)
			r.Put("/unlink", s.handleUnlink)
			r.Get("/validate/{uuid}", s.handleValidate)
			r.Post("/pair_start", s.handlePairStart)
			r.Post("/sync", s.handleSync)
			r.Get("/pair_status/{pair_token}", s.handlePairStatus)
			r.Get("/cards", s.handleCards)
		})

		r.Get("/logs", s.handleListLogs)
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<h1>NFC access API</h1>"))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
