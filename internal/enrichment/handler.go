package enrichment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httpapp "crmbridge_backend/internal/http"
	"crmbridge_backend/platform/httpkit"
	"crmbridge_backend/platform/logger"
)

// Handler receives the enrichment provider's completion callbacks.
// Completions are processed synchronously: the provider retries on
// non-2xx, and HandleCompletion is idempotent either way.
type Handler struct {
	orchestrator *Orchestrator
	log          *logger.Logger
}

// NewHandler creates the enrichment callback handler.
func NewHandler(orchestrator *Orchestrator, log *logger.Logger) *Handler {
	return &Handler{orchestrator: orchestrator, log: log.WithComponent("enrichment_webhook")}
}

// Register mounts the callback routes.
func (h *Handler) Register(r gin.IRoutes) {
	// The provider probes the webhook URL with a GET before accepting it.
	r.GET("/webhooks/enrichment", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/webhooks/enrichment", h.handleCompletion)
}

func (h *Handler) handleCompletion(c *gin.Context) {
	var completion Completion
	if err := c.ShouldBindJSON(&completion); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "malformed completion body", nil)
		return
	}

	if err := h.orchestrator.HandleCompletion(c.Request.Context(), completion); err != nil {
		h.log.Error("completion processing failed", "enrichment_id", completion.CorrelationID(), "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "completion processing failed", nil)
		return
	}

	httpkit.Ack(c, nil)
}

// Module bundles the enrichment feature for HTTP route registration.
type Module struct {
	handler *Handler
	token   string
}

// NewModule creates the enrichment module.
func NewModule(handler *Handler, token string) *Module {
	return &Module{handler: handler, token: token}
}

// Name identifies the module in logs.
func (m *Module) Name() string { return "enrichment" }

// RegisterRoutes mounts the completion callback behind token auth. An
// empty token leaves the route open; some provider plans cannot send
// custom auth, so the URL itself is the secret then.
func (m *Module) RegisterRoutes(rc *httpapp.RouterContext) {
	if m.token == "" {
		m.handler.Register(rc.V1)
		return
	}
	m.handler.Register(rc.V1.Group("", httpkit.TokenAuth(m.token)))
}
