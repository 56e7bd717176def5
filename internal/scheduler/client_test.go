package scheduler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"

	"crmbridge_backend/internal/sync"
)

type schedulerConfigStub struct {
	redisURL string
}

func (s schedulerConfigStub) GetRedisURL() string       { return s.redisURL }
func (s schedulerConfigStub) GetRedisTLSInsecure() bool { return false }
func (s schedulerConfigStub) GetAsynqQueueName() string { return "default" }
func (s schedulerConfigStub) GetAsynqConcurrency() int  { return 1 }

func TestEnqueueSyncEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := schedulerConfigStub{redisURL: "redis://" + mr.Addr()}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	err = client.EnqueueSyncEvent(context.Background(), sync.ObjectDeal, "change", 9, "change.deal:9:2")
	if err != nil {
		t.Fatalf("EnqueueSyncEvent: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	tasks, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 pending task, got %d", len(tasks))
	}

	task := tasks[0]
	if task.Type != TaskSyncEvent {
		t.Fatalf("task type = %q", task.Type)
	}
	if task.MaxRetry != 0 {
		t.Fatalf("events must not retry in-process, MaxRetry = %d", task.MaxRetry)
	}

	var payload SyncEventPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Object != "deal" || payload.Action != "change" || payload.EntityID != 9 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.EventKey != "change.deal:9:2" {
		t.Fatalf("event key = %q", payload.EventKey)
	}
}

func TestParseSyncEventPayloadRoundTrip(t *testing.T) {
	task, err := NewSyncEventTask(SyncEventPayload{Object: "deal", Action: "create", EntityID: 3, EventKey: "create.deal:3:1"})
	if err != nil {
		t.Fatal(err)
	}
	payload, err := ParseSyncEventPayload(task)
	if err != nil {
		t.Fatal(err)
	}
	if payload.EntityID != 3 || payload.Action != "create" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}
