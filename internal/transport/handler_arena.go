package transport

import (
	"net/http"

	"github.com/pitabwire/loom/internal/feature"
	"github.com/pitabwire/loom/model"
)

func handleArenaCompare(svc *feature.ArenaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		var body struct {
			Prompt string   `json:"prompt"`
			Models []string `json:"models"`
		}
		if err := DecodeJSON(r, &body); err != nil {
			WriteError(w, err)
			return
		}

		session, err := svc.Compare(r.Context(), rctx.SubjectID, body.Prompt, body.Models)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, session)
	}
}

func handleArenaList(svc *feature.ArenaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		sessions, err := svc.List(r.Context(), rctx.SubjectID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	}
}
