package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"karoo_lodge/internal/app"
	"karoo_lodge/internal/domain"
)

// Handlers holds every service the router dispatches to. Content and
// Submissions sit on the restricted gateway; Admin, Reconciler and Health
// use the elevated one.
type Handlers struct {
	Content     *app.ContentService
	Submissions *app.SubmissionService
	Admin       *app.AdminService
	Reconciler  *app.Reconciler
	Health      *app.Health

	BookingURL       string
	JWTSecret        string
	MaintenanceToken string
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/book", h.book)

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/home", h.home)
		r.Get("/reviews", h.reviews)
		r.Get("/sections/{kind}", h.section)
		r.Get("/{collection}", h.collection)
		r.Post("/submissions/{kind}", h.submit)
	})

	s.mux.Route("/api/admin", func(r chi.Router) {
		r.With(MaintenanceAuth(h.MaintenanceToken)).Post("/maintenance/dedupe", h.dedupe)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuth(h.JWTSecret))
			r.Get("/health", h.health)
			r.Get("/submissions", h.listSubmissions)
			r.Post("/{target}/upsert", h.upsertSection)
			r.Post("/{target}/create", h.createItem)
			r.Post("/{target}/update", h.updateItem)
			r.Post("/{target}/delete", h.deleteItem)
			r.Post("/{target}/reorder", h.reorder)
		})
	})
}

// ---- public ----

func (h *Handlers) book(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.BookingURL, http.StatusFound)
}

func (h *Handlers) home(w http.ResponseWriter, r *http.Request) {
	p, err := h.Content.Home(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, p)
}

func (h *Handlers) reviews(w http.ResponseWriter, r *http.Request) {
	writeCached(w, r, h.Content.Reviews(r.Context()))
}

func (h *Handlers) section(w http.ResponseWriter, r *http.Request) {
	k, ok := domain.ParseSectionKind(chi.URLParam(r, "kind"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "unknown section")
		return
	}
	writeCached(w, r, h.Content.Section(r.Context(), k))
}

func (h *Handlers) collection(w http.ResponseWriter, r *http.Request) {
	c, ok := domain.ParseCollection(chi.URLParam(r, "collection"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "unknown collection")
		return
	}
	ctx := r.Context()
	switch c {
	case domain.Rooms:
		writeCached(w, r, h.Content.Rooms(ctx))
	case domain.Events:
		writeCached(w, r, h.Content.Events(ctx))
	case domain.Wines:
		writeCached(w, r, h.Content.Wines(ctx))
	case domain.Amenities:
		writeCached(w, r, h.Content.Amenities(ctx))
	}
}

func (h *Handlers) submit(w http.ResponseWriter, r *http.Request) {
	k, ok := domain.ParseSubmissionKind(chi.URLParam(r, "kind"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "unknown form")
		return
	}
	var p domain.Submittable
	var err error
	switch k {
	case domain.SubmissionContact:
		p, err = decodeAs[domain.ContactMessage](w, r)
	case domain.SubmissionBooking:
		p, err = decodeAs[domain.BookingRequest](w, r)
	case domain.SubmissionEvent:
		p, err = decodeAs[domain.EventInquiry](w, r)
	case domain.SubmissionWine:
		p, err = decodeAs[domain.WineInquiry](w, r)
	case domain.SubmissionReservation:
		p, err = decodeAs[domain.RestaurantReservation](w, r)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.Submissions.Submit(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, okBody{OK: true, ID: id})
}

func decodeAs[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var v T
	err := decodeJSON(w, r, &v)
	return v, err
}
