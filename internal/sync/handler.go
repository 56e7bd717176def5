package sync

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"crmbridge_backend/platform/httpkit"
	"crmbridge_backend/platform/logger"
	"crmbridge_backend/platform/validator"
)

// Enqueuer hands accepted webhook events to the task queue.
type Enqueuer interface {
	EnqueueSyncEvent(ctx context.Context, object ObjectType, action string, entityID int64, eventKey string) error
}

// Ledger is the dedup store the handler claims event keys against.
type Ledger interface {
	Claim(ctx context.Context, eventKey string) (bool, error)
}

// Handler receives CRM webhooks: authenticate, deduplicate, enqueue.
// All processing happens asynchronously off the queue so the CRM gets
// its 200 within its delivery timeout.
type Handler struct {
	ledger   Ledger
	enqueuer Enqueuer
	val      *validator.Validator
	log      *logger.Logger
}

// NewHandler creates the webhook handler.
func NewHandler(ledger Ledger, enqueuer Enqueuer, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{ledger: ledger, enqueuer: enqueuer, val: val, log: log.WithComponent("webhook")}
}

// webhookMeta accepts both shapes of the CRM's webhook envelope: the
// newer {entity, action, entity_id, v} and the older {object, action,
// id, timestamp}.
type webhookMeta struct {
	Entity    string `json:"entity"`
	Object    string `json:"object"`
	Action    string `json:"action" validate:"required"`
	EntityID  int64  `json:"entity_id"`
	ID        int64  `json:"id"`
	Version   int64  `json:"v"`
	Timestamp int64  `json:"timestamp"`
}

type webhookBody struct {
	Meta webhookMeta `json:"meta"`
}

func (m webhookMeta) object() string {
	if m.Entity != "" {
		return m.Entity
	}
	return m.Object
}

func (m webhookMeta) entityID() int64 {
	if m.EntityID > 0 {
		return m.EntityID
	}
	return m.ID
}

// eventKey builds the dedup key. The webhook version counter makes
// distinct revisions of the same record distinct events; deliveries
// without one fall back to the timestamp.
func (m webhookMeta) eventKey() string {
	revision := m.Version
	if revision == 0 {
		revision = m.Timestamp
	}
	return fmt.Sprintf("%s.%s:%d:%d", m.Action, m.object(), m.entityID(), revision)
}

// Register mounts the webhook route.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/webhooks/crm", h.handleWebhook)
}

func (h *Handler) handleWebhook(c *gin.Context) {
	var body webhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "malformed webhook body", nil)
		return
	}

	meta := body.Meta
	if err := h.val.Struct(meta); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "missing webhook metadata", nil)
		return
	}
	object, ok := ParseObjectType(meta.object())
	if !ok {
		// Unknown objects are acknowledged so the CRM does not retry.
		httpkit.Ack(c, map[string]bool{"ignored": true})
		return
	}
	entityID := meta.entityID()
	if entityID <= 0 {
		httpkit.Error(c, http.StatusBadRequest, "missing entity id", nil)
		return
	}

	key := meta.eventKey()
	ctx := context.WithValue(c.Request.Context(), logger.EventKeyKey, key)

	claimed, err := h.ledger.Claim(ctx, key)
	if err != nil {
		h.log.DatabaseError("claim event", err)
		httpkit.Error(c, http.StatusInternalServerError, "event claim failed", nil)
		return
	}
	h.log.WebhookEvent("crm", key, !claimed)
	if !claimed {
		httpkit.Ack(c, map[string]bool{"deduped": true})
		return
	}

	if err := h.enqueuer.EnqueueSyncEvent(ctx, object, meta.Action, entityID, key); err != nil {
		h.log.Error("enqueue failed", "event_key", key, "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "enqueue failed", nil)
		return
	}

	httpkit.Ack(c, nil)
}
