package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/loom/internal/feature"
	"github.com/pitabwire/loom/model"
)

func handleConversationCreate(svc *feature.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		var body struct {
			Title string `json:"title"`
			Model string `json:"model"`
		}
		if err := DecodeJSON(r, &body); err != nil {
			WriteError(w, err)
			return
		}

		conv, err := svc.CreateConversation(r.Context(), rctx.SubjectID, body.Title, body.Model)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, conv)
	}
}

func handleConversationList(svc *feature.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		conversations, err := svc.ListConversations(r.Context(), rctx.SubjectID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
	}
}

func handleConversationGet(svc *feature.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())
		conversationID := chi.URLParam(r, "conversationId")

		conv, err := svc.GetConversation(r.Context(), rctx.SubjectID, conversationID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, conv)
	}
}

func handleMessageList(svc *feature.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())
		conversationID := chi.URLParam(r, "conversationId")

		messages, err := svc.ListMessages(r.Context(), rctx.SubjectID, conversationID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"messages": messages})
	}
}

func handleMessageSend(svc *feature.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())
		conversationID := chi.URLParam(r, "conversationId")

		var body struct {
			Content string `json:"content"`
		}
		if err := DecodeJSON(r, &body); err != nil {
			WriteError(w, err)
			return
		}

		reply, err := svc.SendMessage(r.Context(), rctx.SubjectID, conversationID, body.Content)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, reply)
	}
}
