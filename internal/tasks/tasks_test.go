package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"simplyinvoicing/api/internal/metrics"
	"simplyinvoicing/api/internal/models"
	"simplyinvoicing/api/internal/services"
	"simplyinvoicing/api/internal/storage"
)

// --- Mocks ---

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendInvoiceEmail(ctx context.Context, userID, invoiceID string) (*services.SendInvoiceEmailResult, error) {
	args := m.Called(ctx, userID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SendInvoiceEmailResult), args.Error(1)
}

func (m *MockEmailService) ListEmailLogs(ctx context.Context, userID, invoiceID string) ([]models.EmailLog, error) {
	args := m.Called(ctx, userID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EmailLog), args.Error(1)
}

func (m *MockEmailService) ArchiveInvoiceEmail(ctx context.Context, invoiceID, messageID string) error {
	return m.Called(ctx, invoiceID, messageID).Error(0)
}

func (m *MockEmailService) SendWelcomeEmail(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// MockInvoiceService only implements what the processor calls.
type MockInvoiceService struct {
	mock.Mock
	services.IInvoiceService
}

func (m *MockInvoiceService) MarkOverdue(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: "task-1", Queue: "default", Type: task.Type()}, nil
}

// --- Tests ---

func TestQueue_EnqueueWelcomeEmail(t *testing.T) {
	fake := &fakeEnqueuer{}
	q := &Queue{client: fake}

	require.NoError(t, q.EnqueueWelcomeEmail(context.Background(), "user-1"))
	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TypeWelcomeEmail, fake.tasks[0].Type())

	var payload WelcomeEmailPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &payload))
	assert.Equal(t, "user-1", payload.UserID)
}

func TestQueue_EnqueueInvoiceArchive(t *testing.T) {
	fake := &fakeEnqueuer{}
	q := &Queue{client: fake}

	require.NoError(t, q.EnqueueInvoiceArchive(context.Background(), "inv-1", "<m1@example.com>"))
	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TypeInvoiceArchive, fake.tasks[0].Type())

	var payload InvoiceArchivePayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &payload))
	assert.Equal(t, InvoiceArchivePayload{InvoiceID: "inv-1", MessageID: "<m1@example.com>"}, payload)

	var taskID string
	for _, opt := range fake.opts[0] {
		if opt.Type() == asynq.TaskIDOpt {
			taskID = opt.Value().(string)
		}
	}
	assert.Equal(t, "archive:inv-1:<m1@example.com>", taskID)
}

func TestQueue_DuplicateIsNotAnError(t *testing.T) {
	q := &Queue{client: &fakeEnqueuer{err: asynq.ErrTaskIDConflict}}
	assert.NoError(t, q.EnqueueInvoiceArchive(context.Background(), "inv-1", "m"))

	q = &Queue{client: &fakeEnqueuer{err: errors.New("redis down")}}
	assert.Error(t, q.EnqueueWelcomeEmail(context.Background(), "user-1"))
}

func TestHandleWelcomeEmailTask(t *testing.T) {
	emails := new(MockEmailService)
	emails.On("SendWelcomeEmail", mock.Anything, "user-1").Return(nil)
	emails.On("SendWelcomeEmail", mock.Anything, "gone").Return(services.ErrNotFound)
	p := NewTaskProcessor(nil, emails, nil)

	payload, _ := json.Marshal(WelcomeEmailPayload{UserID: "user-1"})
	assert.NoError(t, p.HandleWelcomeEmailTask(context.Background(), asynq.NewTask(TypeWelcomeEmail, payload)))

	payload, _ = json.Marshal(WelcomeEmailPayload{UserID: "gone"})
	err := p.HandleWelcomeEmailTask(context.Background(), asynq.NewTask(TypeWelcomeEmail, payload))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = p.HandleWelcomeEmailTask(context.Background(), asynq.NewTask(TypeWelcomeEmail, []byte("{bad json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleInvoiceArchiveTask(t *testing.T) {
	emails := new(MockEmailService)
	emails.On("ArchiveInvoiceEmail", mock.Anything, "inv-1", "m1").Return(nil)
	emails.On("ArchiveInvoiceEmail", mock.Anything, "inv-2", "m2").Return(storage.ErrNotConfigured)
	emails.On("ArchiveInvoiceEmail", mock.Anything, "inv-3", "m3").Return(errors.New("s3 timeout"))
	p := NewTaskProcessor(nil, emails, nil)

	run := func(invoiceID, messageID string) error {
		payload, _ := json.Marshal(InvoiceArchivePayload{InvoiceID: invoiceID, MessageID: messageID})
		return p.HandleInvoiceArchiveTask(context.Background(), asynq.NewTask(TypeInvoiceArchive, payload))
	}

	assert.NoError(t, run("inv-1", "m1"))
	assert.ErrorIs(t, run("inv-2", "m2"), asynq.SkipRetry)
	err := run("inv-3", "m3")
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestMuxCountsOutcomes(t *testing.T) {
	invoices := new(MockInvoiceService)
	invoices.On("MarkOverdue", mock.Anything).Return(int64(2), nil)
	m := metrics.New()
	p := NewTaskProcessor(invoices, new(MockEmailService), m)
	mux := p.Mux()

	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(TypeInvoiceMarkOverdue, nil)))
	err := mux.ProcessTask(context.Background(), asynq.NewTask(TypeWelcomeEmail, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues(TypeInvoiceMarkOverdue, metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues(TypeWelcomeEmail, metrics.OutcomeInvalid)))
	invoices.AssertExpectations(t)
}
