package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/loom/internal/feature"
	"github.com/pitabwire/loom/internal/tool"
	"github.com/pitabwire/loom/model"
)

type workflowBody struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Steps       []model.Step `json:"steps"`
	IsPublic    bool         `json:"is_public"`
}

func handleWorkflowCreate(svc *feature.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		var body workflowBody
		if err := DecodeJSON(r, &body); err != nil {
			WriteError(w, err)
			return
		}

		wf, err := svc.Create(r.Context(), rctx.SubjectID, body.Name, body.Description, body.Steps, body.IsPublic)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, wf)
	}
}

func handleWorkflowList(svc *feature.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		workflows, err := svc.List(r.Context(), rctx.SubjectID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"workflows": workflows})
	}
}

func handleWorkflowGet(svc *feature.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())
		workflowID := chi.URLParam(r, "workflowId")

		wf, err := svc.Get(r.Context(), rctx.SubjectID, workflowID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, wf)
	}
}

func handleWorkflowUpdate(svc *feature.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())
		workflowID := chi.URLParam(r, "workflowId")

		var body workflowBody
		if err := DecodeJSON(r, &body); err != nil {
			WriteError(w, err)
			return
		}

		wf, err := svc.Update(r.Context(), rctx.SubjectID, workflowID, body.Name, body.Description, body.Steps, body.IsPublic)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, wf)
	}
}

func handleWorkflowExecute(svc *feature.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())
		workflowID := chi.URLParam(r, "workflowId")

		var body struct {
			Input map[string]any `json:"input"`
		}
		if err := DecodeJSON(r, &body); err != nil {
			WriteError(w, err)
			return
		}

		exec, err := svc.Execute(r.Context(), rctx.SubjectID, workflowID, body.Input)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, exec)
	}
}

func handleExecutionList(svc *feature.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())
		workflowID := chi.URLParam(r, "workflowId")

		executions, err := svc.ListExecutions(r.Context(), rctx.SubjectID, workflowID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"executions": executions})
	}
}

func handleExecutionGet(svc *feature.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())
		executionID := chi.URLParam(r, "executionId")

		exec, err := svc.GetExecution(r.Context(), rctx.SubjectID, executionID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, exec)
	}
}

func handleExecutionEvents(svc *feature.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())
		executionID := chi.URLParam(r, "executionId")

		events, err := svc.GetExecutionEvents(r.Context(), rctx.SubjectID, executionID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"events": events})
	}
}

func handleToolList(registry *tool.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"tools": registry.Names()})
	}
}
