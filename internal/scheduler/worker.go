package scheduler

import (
	"context"
	"fmt"
	"os"

	"crm_backend/internal/events"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker consumes scheduler tasks and republishes them on the event bus.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
		Logger: asynqLogger{log: log},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskDeliverOutbox, w.deliverOutbox)

	return w, nil
}

// deliverOutbox hands the record to the notification module through the
// bus. Handler errors are returned so asynq records them, but the task is
// enqueued with MaxRetry(0) and is not run again.
func (w *Worker) deliverOutbox(ctx context.Context, task *asynq.Task) error {
	outboxID, err := outboxIDFromTask(task)
	if err != nil {
		return err
	}
	if w.bus == nil {
		w.log.Warn("no event bus; dropping outbox task", "outboxId", outboxID)
		return nil
	}
	return w.bus.PublishSync(ctx, events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  outboxID,
	})
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

// asynqLogger routes asynq's internal logging through the application logger.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) {
	l.log.Error(fmt.Sprint(args...))
	os.Exit(1)
}
