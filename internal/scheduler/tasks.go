package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskSyncEvent = "sync.event.process"

// SyncEventPayload carries one deduplicated webhook event to the worker.
type SyncEventPayload struct {
	Object   string `json:"object"`
	Action   string `json:"action"`
	EntityID int64  `json:"entityId"`
	EventKey string `json:"eventKey"`
}

func NewSyncEventTask(payload SyncEventPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSyncEvent, data), nil
}

func ParseSyncEventPayload(task *asynq.Task) (SyncEventPayload, error) {
	var payload SyncEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SyncEventPayload{}, err
	}
	return payload, nil
}
