package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Server struct{ mux *chi.Mux }

func New(corsOrigins []string) *Server {
	m := chi.NewRouter()

	// all middlewares go before any route is added
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(RequestLogger)
	m.Use(chimw.Recoverer)
	m.Use(CORS(corsOrigins))
	m.Use(Timeout(15 * time.Second))
	m.Use(Metrics)

	// unmatched routes answer with the same {error} body as handlers
	m.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	m.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches a handler outside the API routes, such as /metrics.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
