package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/keepsake/internal/cardservice"
)

// EventStreamer serves a session's server-sent events.
type EventStreamer interface {
	Serve(w http.ResponseWriter, r *http.Request, session string)
}

// NewRouter creates a chi router with all API routes mounted. events, if
// non-nil, is mounted at GET /events.
func NewRouter(svc *cardservice.Service, events EventStreamer) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Playlist is shared by every visitor and needs no session.
	r.Get("/playlist", h.GetPlaylist)

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(svc))

		// Lock.
		r.Get("/lock", h.GetLock)
		r.Post("/lock/tumblers/{position}/{direction}", h.Turn)

		// Keepsakes.
		r.Get("/keepsakes", h.ListKeepsakes)
		r.Get("/keepsakes/{id}", h.GetKeepsake)

		if events != nil {
			r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
				events.Serve(w, r, SessionID(r.Context()))
			})
		}
	})

	return r
}
