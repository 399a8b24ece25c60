package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"karoo_lodge/internal/app"
	"karoo_lodge/internal/domain"
)

type idBody struct {
	ID string `json:"id"`
}

type updateBody[F any] struct {
	ID      string `json:"id"`
	Payload F      `json:"payload"`
}

type reorderBody struct {
	Order []domain.RankAssignment `json:"order"`
}

type dedupeBody struct {
	OK      bool             `json:"ok"`
	Removed app.DedupeReport `json:"removed"`
}

func (h *Handlers) targetCollection(w http.ResponseWriter, r *http.Request) (domain.Collection, bool) {
	c, ok := domain.ParseCollection(chi.URLParam(r, "target"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "unknown collection")
	}
	return c, ok
}

func (h *Handlers) upsertSection(w http.ResponseWriter, r *http.Request) {
	k, ok := domain.ParseSectionKind(chi.URLParam(r, "target"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "unknown section")
		return
	}
	var sec domain.Section
	var err error
	switch k {
	case domain.SectionHero:
		sec, err = decodeAs[domain.HeroSection](w, r)
	case domain.SectionRestaurant:
		sec, err = decodeAs[domain.RestaurantSection](w, r)
	case domain.SectionBar:
		sec, err = decodeAs[domain.BarSection](w, r)
	case domain.SectionWineBoutique:
		sec, err = decodeAs[domain.WineBoutiqueSection](w, r)
	case domain.SectionGallery:
		sec, err = decodeAs[domain.GallerySection](w, r)
	case domain.SectionContact:
		sec, err = decodeAs[domain.ContactSection](w, r)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.Admin.UpsertSection(r.Context(), sec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true, ID: id})
}

// decodeFields reads the editable shape of collection c.
func decodeFields(w http.ResponseWriter, r *http.Request, c domain.Collection) (domain.Editable, error) {
	switch c {
	case domain.Rooms:
		return decodeAs[domain.RoomFields](w, r)
	case domain.Events:
		return decodeAs[domain.EventFields](w, r)
	case domain.Wines:
		return decodeAs[domain.WineFields](w, r)
	default:
		return decodeAs[domain.AmenityFields](w, r)
	}
}

// decodeUpdate reads {"id": ..., "payload": {...}} for collection c.
func decodeUpdate(w http.ResponseWriter, r *http.Request, c domain.Collection) (string, domain.Editable, error) {
	switch c {
	case domain.Rooms:
		b, err := decodeAs[updateBody[domain.RoomFields]](w, r)
		return b.ID, b.Payload, err
	case domain.Events:
		b, err := decodeAs[updateBody[domain.EventFields]](w, r)
		return b.ID, b.Payload, err
	case domain.Wines:
		b, err := decodeAs[updateBody[domain.WineFields]](w, r)
		return b.ID, b.Payload, err
	default:
		b, err := decodeAs[updateBody[domain.AmenityFields]](w, r)
		return b.ID, b.Payload, err
	}
}

func (h *Handlers) createItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.targetCollection(w, r)
	if !ok {
		return
	}
	f, err := decodeFields(w, r, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.Admin.CreateItem(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, okBody{OK: true, ID: id})
}

func (h *Handlers) updateItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.targetCollection(w, r)
	if !ok {
		return
	}
	id, f, err := decodeUpdate(w, r, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Admin.UpdateItem(r.Context(), id, f); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true, ID: id})
}

func (h *Handlers) deleteItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.targetCollection(w, r)
	if !ok {
		return
	}
	b, err := decodeAs[idBody](w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Admin.DeleteItem(r.Context(), c, b.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (h *Handlers) reorder(w http.ResponseWriter, r *http.Request) {
	c, ok := h.targetCollection(w, r)
	if !ok {
		return
	}
	b, err := decodeAs[reorderBody](w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Admin.Reorder(r.Context(), c, b.Order); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (h *Handlers) listSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	k, ok := domain.ParseSubmissionKind(q.Get("kind"))
	if !ok {
		writeMessage(w, http.StatusBadRequest, "kind must be one of contact, booking, event-inquiry, wine-inquiry, reservation")
		return
	}
	limit := 100
	if ls := q.Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 500 {
			writeMessage(w, http.StatusBadRequest, "limit must be an integer between 1 and 500")
			return
		}
		limit = l
	}
	subs, err := h.Admin.Submissions(r.Context(), k, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": subs})
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Health.Check(r.Context()))
}

func (h *Handlers) dedupe(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Reconciler.Dedupe(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dedupeBody{OK: true, Removed: rep})
}
