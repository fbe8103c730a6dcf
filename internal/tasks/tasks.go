package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"simplyinvoicing/api/internal/cache"
	"simplyinvoicing/api/internal/config"
	"simplyinvoicing/api/internal/metrics"
	"simplyinvoicing/api/internal/services"
	"simplyinvoicing/api/internal/storage"
)

// TaskType defines the type of a background task.
const (
	TypeWelcomeEmail       = "email:welcome"
	TypeInvoiceArchive     = "invoice:archive"
	TypeInvoiceMarkOverdue = "invoice:mark_overdue"
)

const (
	queueCritical = "critical"
	queueDefault  = "default"
	queueLow      = "low"
)

// RedisOpt builds the asynq connection options from config.
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  cache.DialTimeout,
		ReadTimeout:  cache.ReadTimeout,
		WriteTimeout: cache.WriteTimeout,
	}
}

// --- Task Client (Enqueuing tasks) ---

// NewClient creates an asynq client for enqueuing tasks.
func NewClient(cfg *config.Config) *asynq.Client {
	return asynq.NewClient(RedisOpt(cfg))
}

// taskEnqueuer is the subset of *asynq.Client used by Queue.
type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue enqueues background tasks on behalf of the services.
type Queue struct {
	client taskEnqueuer
}

var _ services.ITaskQueue = (*Queue)(nil)

// NewQueue wraps an asynq client.
func NewQueue(client *asynq.Client) *Queue {
	return &Queue{client: client}
}

// WelcomeEmailPayload is the payload of TypeWelcomeEmail.
type WelcomeEmailPayload struct {
	UserID string `json:"userId"`
}

// InvoiceArchivePayload is the payload of TypeInvoiceArchive.
type InvoiceArchivePayload struct {
	InvoiceID string `json:"invoiceId"`
	MessageID string `json:"messageId"`
}

func (q *Queue) EnqueueWelcomeEmail(ctx context.Context, userID string) error {
	return q.enqueue(ctx, TypeWelcomeEmail, WelcomeEmailPayload{UserID: userID},
		asynq.Queue(queueDefault), asynq.MaxRetry(5))
}

func (q *Queue) EnqueueInvoiceArchive(ctx context.Context, invoiceID, messageID string) error {
	return q.enqueue(ctx, TypeInvoiceArchive, InvoiceArchivePayload{InvoiceID: invoiceID, MessageID: messageID},
		asynq.Queue(queueLow), asynq.MaxRetry(10), asynq.TaskID("archive:"+invoiceID+":"+messageID))
}

func (q *Queue) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}
	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(taskType, data), opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			log.WithField("type", taskType).Debug("Task already enqueued")
			return nil
		}
		return fmt.Errorf("failed to enqueue %s task: %w", taskType, err)
	}
	log.WithFields(log.Fields{"type": taskType, "taskId": info.ID, "queue": info.Queue}).Debug("Task enqueued")
	return nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	invoiceService services.IInvoiceService
	emailService   services.IEmailService
	metrics        *metrics.Metrics
}

// NewTaskProcessor creates a processor. Metrics may be nil.
func NewTaskProcessor(invoiceService services.IInvoiceService, emailService services.IEmailService, m *metrics.Metrics) *TaskProcessor {
	return &TaskProcessor{
		invoiceService: invoiceService,
		emailService:   emailService,
		metrics:        m,
	}
}

// Mux registers every task handler.
func (p *TaskProcessor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeWelcomeEmail, p.counted(TypeWelcomeEmail, p.HandleWelcomeEmailTask))
	mux.HandleFunc(TypeInvoiceArchive, p.counted(TypeInvoiceArchive, p.HandleInvoiceArchiveTask))
	mux.HandleFunc(TypeInvoiceMarkOverdue, p.counted(TypeInvoiceMarkOverdue, p.HandleInvoiceMarkOverdueTask))
	return mux
}

// NewServer configures an asynq server instance.
func NewServer(cfg *config.Config) *asynq.Server {
	return asynq.NewServer(
		RedisOpt(cfg),
		asynq.Config{
			Queues: map[string]int{
				queueCritical: 6,
				queueDefault:  3,
				queueLow:      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.WithFields(log.Fields{"type": task.Type(), "payload": string(task.Payload())}).WithError(err).Error("Task failed")
			}),
			Logger: log.StandardLogger(),
		},
	)
}

// NewScheduler registers the periodic tasks.
func NewScheduler(cfg *config.Config) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(RedisOpt(cfg), &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   log.StandardLogger(),
	})
	entryID, err := scheduler.Register(cfg.OverdueSweepCronSpec, asynq.NewTask(TypeInvoiceMarkOverdue, nil),
		asynq.Queue(queueDefault), asynq.MaxRetry(1), asynq.Unique(10*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("failed to schedule overdue sweep %q: %w", cfg.OverdueSweepCronSpec, err)
	}
	log.WithFields(log.Fields{"entryId": entryID, "spec": cfg.OverdueSweepCronSpec}).Info("Overdue sweep scheduled")
	return scheduler, nil
}

// --- Task Handlers ---

func (p *TaskProcessor) HandleWelcomeEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.UserID == "" {
		return fmt.Errorf("invalid welcome email payload: %v: %w", err, asynq.SkipRetry)
	}
	err := p.emailService.SendWelcomeEmail(ctx, payload.UserID)
	if errors.Is(err, services.ErrNotFound) {
		return fmt.Errorf("user %s not found: %w", payload.UserID, asynq.SkipRetry)
	}
	return err
}

func (p *TaskProcessor) HandleInvoiceArchiveTask(ctx context.Context, t *asynq.Task) error {
	var payload InvoiceArchivePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.InvoiceID == "" {
		return fmt.Errorf("invalid invoice archive payload: %v: %w", err, asynq.SkipRetry)
	}
	err := p.emailService.ArchiveInvoiceEmail(ctx, payload.InvoiceID, payload.MessageID)
	switch {
	case err == nil:
		log.WithFields(log.Fields{"invoiceId": payload.InvoiceID, "messageId": payload.MessageID}).Info("Invoice email archived")
		return nil
	case errors.Is(err, storage.ErrNotConfigured), errors.Is(err, services.ErrNotFound):
		return fmt.Errorf("invoice %s not archived: %v: %w", payload.InvoiceID, err, asynq.SkipRetry)
	default:
		return err
	}
}

func (p *TaskProcessor) HandleInvoiceMarkOverdueTask(ctx context.Context, _ *asynq.Task) error {
	_, err := p.invoiceService.MarkOverdue(ctx)
	return err
}

func (p *TaskProcessor) counted(taskType string, h asynq.HandlerFunc) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		err := h(ctx, t)
		if p.metrics != nil {
			outcome := metrics.OutcomeOK
			switch {
			case errors.Is(err, asynq.SkipRetry):
				outcome = metrics.OutcomeInvalid
			case err != nil:
				outcome = metrics.OutcomeError
			}
			p.metrics.TasksTotal.WithLabelValues(taskType, outcome).Inc()
		}
		return err
	}
}
