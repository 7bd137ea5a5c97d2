package transport

import (
	"net/http"

	"github.com/pitabwire/loom/internal/feature"
	"github.com/pitabwire/loom/model"
)

func handleImageGenerate(svc *feature.ImageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		var body struct {
			Prompt string `json:"prompt"`
			Model  string `json:"model"`
		}
		if err := DecodeJSON(r, &body); err != nil {
			WriteError(w, err)
			return
		}

		gen, err := svc.Generate(r.Context(), rctx.SubjectID, body.Prompt, body.Model)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, gen)
	}
}

func handleImageList(svc *feature.ImageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		generations, err := svc.List(r.Context(), rctx.SubjectID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"generations": generations})
	}
}

func handleSpeechSynthesize(svc *feature.SpeechService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		var body struct {
			Text  string `json:"text"`
			Voice string `json:"voice"`
		}
		if err := DecodeJSON(r, &body); err != nil {
			WriteError(w, err)
			return
		}

		gen, err := svc.Synthesize(r.Context(), rctx.SubjectID, body.Text, body.Voice)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, gen)
	}
}

func handleSpeechList(svc *feature.SpeechService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		generations, err := svc.List(r.Context(), rctx.SubjectID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"generations": generations})
	}
}

func handleVideoGenerate(svc *feature.VideoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		var body struct {
			Prompt string `json:"prompt"`
			Model  string `json:"model"`
		}
		if err := DecodeJSON(r, &body); err != nil {
			WriteError(w, err)
			return
		}

		gen, err := svc.Generate(r.Context(), rctx.SubjectID, body.Prompt, body.Model)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, gen)
	}
}

func handleVideoList(svc *feature.VideoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		generations, err := svc.List(r.Context(), rctx.SubjectID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"generations": generations})
	}
}
