package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"crmbridge_backend/platform/httpkit"
	"crmbridge_backend/platform/logger"
	"crmbridge_backend/platform/validator"
)

type fakeLedger struct {
	claimed map[string]bool
}

func (f *fakeLedger) Claim(_ context.Context, key string) (bool, error) {
	if f.claimed == nil {
		f.claimed = make(map[string]bool)
	}
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

type fakeEnqueuer struct {
	enqueued []string
}

func (f *fakeEnqueuer) EnqueueSyncEvent(_ context.Context, object ObjectType, action string, entityID int64, eventKey string) error {
	f.enqueued = append(f.enqueued, eventKey)
	return nil
}

func newTestEngine(ledger *fakeLedger, enq *fakeEnqueuer, token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewHandler(ledger, enq, validator.New(), logger.New("development"))
	h.Register(engine.Group("/api/v1", httpkit.TokenAuth(token)))
	return engine
}

func post(engine *gin.Engine, url, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRejectsBadToken(t *testing.T) {
	engine := newTestEngine(&fakeLedger{}, &fakeEnqueuer{}, "secret")

	rec := post(engine, "/api/v1/webhooks/crm?token=wrong", `{"meta":{"entity":"deal","action":"change","entity_id":9}}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebhookClaimsAndEnqueues(t *testing.T) {
	ledger := &fakeLedger{}
	enq := &fakeEnqueuer{}
	engine := newTestEngine(ledger, enq, "secret")

	body := `{"meta":{"entity":"deal","action":"change","entity_id":9,"v":2}}`
	rec := post(engine, "/api/v1/webhooks/crm?token=secret", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(enq.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued event, got %d", len(enq.enqueued))
	}
	if enq.enqueued[0] != "change.deal:9:2" {
		t.Fatalf("unexpected event key %q", enq.enqueued[0])
	}
}

func TestWebhookDeduplicatesRedelivery(t *testing.T) {
	ledger := &fakeLedger{}
	enq := &fakeEnqueuer{}
	engine := newTestEngine(ledger, enq, "secret")

	body := `{"meta":{"entity":"deal","action":"change","entity_id":9,"v":2}}`
	for i := 0; i < 3; i++ {
		rec := post(engine, "/api/v1/webhooks/crm?token=secret", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i, rec.Code)
		}
	}
	if len(enq.enqueued) != 1 {
		t.Fatalf("redeliveries must enqueue once, got %d", len(enq.enqueued))
	}
}

func TestWebhookDistinctRevisionsAreDistinctEvents(t *testing.T) {
	ledger := &fakeLedger{}
	enq := &fakeEnqueuer{}
	engine := newTestEngine(ledger, enq, "secret")

	post(engine, "/api/v1/webhooks/crm?token=secret", `{"meta":{"entity":"deal","action":"change","entity_id":9,"v":2}}`)
	post(engine, "/api/v1/webhooks/crm?token=secret", `{"meta":{"entity":"deal","action":"change","entity_id":9,"v":3}}`)

	if len(enq.enqueued) != 2 {
		t.Fatalf("distinct revisions must both enqueue, got %d", len(enq.enqueued))
	}
}

func TestWebhookAcknowledgesUnknownObject(t *testing.T) {
	enq := &fakeEnqueuer{}
	engine := newTestEngine(&fakeLedger{}, enq, "secret")

	rec := post(engine, "/api/v1/webhooks/crm?token=secret", `{"meta":{"entity":"note","action":"create","entity_id":9}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown objects must still be acknowledged, got %d", rec.Code)
	}
	if len(enq.enqueued) != 0 {
		t.Fatal("unknown objects must not be enqueued")
	}
}

func TestWebhookAcceptsLegacyEnvelope(t *testing.T) {
	enq := &fakeEnqueuer{}
	engine := newTestEngine(&fakeLedger{}, enq, "secret")

	rec := post(engine, "/api/v1/webhooks/crm?token=secret", `{"meta":{"object":"person","action":"updated","id":4,"timestamp":1700000000}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(enq.enqueued) != 1 || enq.enqueued[0] != "updated.person:4:1700000000" {
		t.Fatalf("unexpected enqueue %v", enq.enqueued)
	}
}
