package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/loom/internal/feature"
	"github.com/pitabwire/loom/model"
)

func handleCodeSessionCreate(svc *feature.CodeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		var body struct {
			Title    string `json:"title"`
			Language string `json:"language"`
		}
		if err := DecodeJSON(r, &body); err != nil {
			WriteError(w, err)
			return
		}

		session, err := svc.CreateSession(r.Context(), rctx.SubjectID, body.Title, body.Language)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, session)
	}
}

func handleCodeSessionList(svc *feature.CodeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		sessions, err := svc.ListSessions(r.Context(), rctx.SubjectID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	}
}

func handleCodeSessionGet(svc *feature.CodeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())
		sessionID := chi.URLParam(r, "sessionId")

		session, err := svc.GetSession(r.Context(), rctx.SubjectID, sessionID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, session)
	}
}

func handleCodeReview(svc *feature.CodeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())
		sessionID := chi.URLParam(r, "sessionId")

		var body struct {
			Code string `json:"code"`
		}
		if err := DecodeJSON(r, &body); err != nil {
			WriteError(w, err)
			return
		}

		session, err := svc.Review(r.Context(), rctx.SubjectID, sessionID, body.Code)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, session)
	}
}
