package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/loom/internal/config"
	"github.com/pitabwire/loom/internal/feature"
	"github.com/pitabwire/loom/internal/observability"
	"github.com/pitabwire/loom/internal/tool"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config       *config.Config
	Authenticate func(http.Handler) http.Handler
	Metrics      *observability.Metrics
	Readiness    observability.ReadinessChecks
	Registry     *tool.Registry

	Workflows *feature.WorkflowService
	Chat      *feature.ChatService
	Images    *feature.ImageService
	Arena     *feature.ArenaService
	Speech    *feature.SpeechService
	Video     *feature.VideoService
	Research  *feature.ResearchService
	Code      *feature.CodeService
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// authentication middleware.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	// Global middleware: applied to all routes including health.
	r.Use(Recovery)
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)
	if deps.Config.Observability.Tracing.Enabled {
		r.Use(observability.TracingMiddleware)
	}
	if deps.Metrics != nil {
		r.Use(deps.Metrics.MetricsMiddleware)
	}

	// Public routes — bypass authentication.
	r.Get("/v1/health", observability.HandleHealth())
	r.Get("/v1/ready", observability.HandleReady(deps.Readiness))
	if deps.Config.Observability.Metrics.Enabled {
		r.Method(http.MethodGet, deps.Config.Observability.Metrics.Path, observability.Handler())
	}

	// Authenticated routes — full middleware chain.
	auth := deps.Authenticate
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Use(BuildRequestContext)
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging)

		r.Get("/v1/tools", handleToolList(deps.Registry))

		r.Route("/v1/workflows", func(r chi.Router) {
			r.Post("/", handleWorkflowCreate(deps.Workflows))
			r.Get("/", handleWorkflowList(deps.Workflows))
			r.Get("/{workflowId}", handleWorkflowGet(deps.Workflows))
			r.Put("/{workflowId}", handleWorkflowUpdate(deps.Workflows))
			r.Post("/{workflowId}/execute", handleWorkflowExecute(deps.Workflows))
			r.Get("/{workflowId}/executions", handleExecutionList(deps.Workflows))
		})
		r.Route("/v1/executions", func(r chi.Router) {
			r.Get("/{executionId}", handleExecutionGet(deps.Workflows))
			r.Get("/{executionId}/events", handleExecutionEvents(deps.Workflows))
		})

		r.Route("/v1/conversations", func(r chi.Router) {
			r.Post("/", handleConversationCreate(deps.Chat))
			r.Get("/", handleConversationList(deps.Chat))
			r.Get("/{conversationId}", handleConversationGet(deps.Chat))
			r.Get("/{conversationId}/messages", handleMessageList(deps.Chat))
			r.Post("/{conversationId}/messages", handleMessageSend(deps.Chat))
		})

		r.Route("/v1/images", func(r chi.Router) {
			r.Post("/", handleImageGenerate(deps.Images))
			r.Get("/", handleImageList(deps.Images))
		})
		r.Route("/v1/speech", func(r chi.Router) {
			r.Post("/", handleSpeechSynthesize(deps.Speech))
			r.Get("/", handleSpeechList(deps.Speech))
		})
		r.Route("/v1/videos", func(r chi.Router) {
			r.Post("/", handleVideoGenerate(deps.Video))
			r.Get("/", handleVideoList(deps.Video))
		})
		r.Route("/v1/arena", func(r chi.Router) {
			r.Post("/", handleArenaCompare(deps.Arena))
			r.Get("/", handleArenaList(deps.Arena))
		})
		r.Route("/v1/research", func(r chi.Router) {
			r.Post("/", handleResearchRun(deps.Research))
			r.Get("/", handleResearchList(deps.Research))
		})
		r.Route("/v1/code-sessions", func(r chi.Router) {
			r.Post("/", handleCodeSessionCreate(deps.Code))
			r.Get("/", handleCodeSessionList(deps.Code))
			r.Get("/{sessionId}", handleCodeSessionGet(deps.Code))
			r.Post("/{sessionId}/review", handleCodeReview(deps.Code))
		})
	})

	return r
}
