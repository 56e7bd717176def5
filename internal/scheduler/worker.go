package scheduler

import (
	"context"
	"fmt"

	"crmbridge_backend/internal/sync"
	"crmbridge_backend/platform/config"
	"crmbridge_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor *sync.Processor
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, processor *sync.Processor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		processor: processor,
		log:       log,
	}

	mux.HandleFunc(TaskSyncEvent, w.handleSyncEvent)

	return w, nil
}

func (w *Worker) handleSyncEvent(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSyncEventPayload(task)
	if err != nil {
		return err
	}

	object, ok := sync.ParseObjectType(payload.Object)
	if !ok {
		w.log.Warn("dropping task with unknown object", "object", payload.Object)
		return nil
	}

	ctx = context.WithValue(ctx, logger.EventKeyKey, payload.EventKey)
	if err := w.processor.Process(ctx, object, payload.Action, payload.EntityID); err != nil {
		w.log.WithContext(ctx).Error("event processing failed", "object", payload.Object, "entity_id", payload.EntityID, "error", err)
		return err
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
