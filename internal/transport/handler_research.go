package transport

import (
	"net/http"

	"github.com/pitabwire/loom/internal/feature"
	"github.com/pitabwire/loom/model"
)

func handleResearchRun(svc *feature.ResearchService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		var body struct {
			Query string `json:"query"`
		}
		if err := DecodeJSON(r, &body); err != nil {
			WriteError(w, err)
			return
		}

		session, err := svc.Run(r.Context(), rctx.SubjectID, body.Query)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, session)
	}
}

func handleResearchList(svc *feature.ResearchService) http.HandlerFunc {
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
