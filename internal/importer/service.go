package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/openpim/importer/internal/domain"
	"github.com/openpim/importer/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrTaskNotStartable is returned when a task is started twice or after it
// reached a terminal state.
var ErrTaskNotStartable = errors.New("import task is not startable")

// Service exposes the import pipeline to the surrounding system: task
// creation, asynchronous start, cancellation and status polling. Each task
// is processed by exactly one worker goroutine end-to-end.
type Service struct {
	organizations repository.OrganizationRepository
	tasks         repository.TaskStore
	catalog       repository.CatalogRepository
	files         repository.FileStore
	logger        logrus.FieldLogger

	chunkSize  int
	relaxed    bool
	jobTimeout time.Duration

	workerCancels sync.Map // map[uuid.UUID]context.CancelFunc
}

// Option customizes the service.
type Option func(*Service)

// WithChunkSize overrides the rows-per-chunk default.
func WithChunkSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithRelaxedFamilyValidation disables the attribute-in-family check while
// keeping attribute existence checks.
func WithRelaxedFamilyValidation(relaxed bool) Option {
	return func(s *Service) {
		s.relaxed = relaxed
	}
}

// WithJobTimeout bounds the wall-clock time of one import worker.
func WithJobTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.jobTimeout = timeout
		}
	}
}

// WithLogger injects the structured logger used by workers.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates the import service.
func NewService(organizations repository.OrganizationRepository, tasks repository.TaskStore, catalog repository.CatalogRepository, files repository.FileStore, opts ...Option) *Service {
	s := &Service{
		organizations: organizations,
		tasks:         tasks,
		catalog:       catalog,
		files:         files,
		logger:        logrus.StandardLogger(),
		chunkSize:     DefaultChunkSize,
		jobTimeout:    60 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTaskRequest describes a new import task.
type CreateTaskRequest struct {
	OrganizationID    uuid.UUID
	CreatedBy         uuid.UUID
	FileName          string
	Data              io.Reader
	Mapping           domain.ColumnMapping
	DuplicateStrategy domain.DuplicateStrategy
	SchemaVersion     string
}

// CreateTask stores the uploaded file and persists a queued task.
func (s *Service) CreateTask(ctx context.Context, req CreateTaskRequest) (domain.ImportTask, error) {
	if req.OrganizationID == uuid.Nil {
		return domain.ImportTask{}, errors.New("organization id is required")
	}
	if _, err := s.organizations.GetByID(ctx, req.OrganizationID); err != nil {
		return domain.ImportTask{}, fmt.Errorf("failed to validate organization: %w", err)
	}
	if strings.TrimSpace(req.FileName) == "" {
		return domain.ImportTask{}, errors.New("file name is required")
	}
	if req.Data == nil {
		return domain.ImportTask{}, errors.New("data reader is required")
	}
	if req.Mapping.Len() == 0 {
		return domain.ImportTask{}, errors.New("column mapping is required")
	}
	strategy := req.DuplicateStrategy
	if strategy == "" {
		strategy = domain.DuplicateStrategySkip
	}
	if !domain.ValidDuplicateStrategy(strategy) {
		return domain.ImportTask{}, fmt.Errorf("unknown duplicate strategy %q", strategy)
	}
	schemaVersion := req.SchemaVersion
	if schemaVersion == "" {
		schemaVersion = domain.FieldSchemaV2
	}

	fileRef, err := s.files.Save(ctx, req.FileName, req.Data)
	if err != nil {
		return domain.ImportTask{}, fmt.Errorf("failed to store upload: %w", err)
	}

	task := domain.NewImportTask(req.OrganizationID, req.CreatedBy, req.FileName, fileRef, req.Mapping, strategy, schemaVersion)
	persisted, err := s.tasks.Create(ctx, task)
	if err != nil {
		return domain.ImportTask{}, fmt.Errorf("failed to create task: %w", err)
	}
	return persisted, nil
}

// StartImport begins asynchronous processing of a queued task and returns
// immediately.
func (s *Service) StartImport(ctx context.Context, taskID uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status != domain.ImportTaskStatusQueued {
		return fmt.Errorf("%w: status is %s", ErrTaskNotStartable, task.Status)
	}
	s.launchWorker(task)
	return nil
}

// CancelImport requests cancellation. Terminal tasks are left untouched and
// their status is returned as-is; otherwise the caller sees "canceled" even
// though the task is persisted as error.
func (s *Service) CancelImport(ctx context.Context, taskID uuid.UUID) (string, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return "", err
	}
	if task.Status.IsTerminal() {
		return string(task.Status), nil
	}

	if cancel, ok := s.workerCancels.LoadAndDelete(taskID); ok {
		if fn, okCast := cancel.(context.CancelFunc); okCast {
			fn()
		}
		return "canceled", nil
	}

	// Still queued: no worker to interrupt, finalize directly.
	if err := s.tasks.Complete(ctx, taskID, domain.ImportTaskStatusError, 0, 0); err != nil {
		return "", fmt.Errorf("failed to cancel queued task: %w", err)
	}
	return "canceled", nil
}

// GetTask returns the task for status polling.
func (s *Service) GetTask(ctx context.Context, taskID uuid.UUID) (domain.ImportTask, error) {
	return s.tasks.GetByID(ctx, taskID)
}

// ListTasks returns the organization's tasks, newest first.
func (s *Service) ListTasks(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]domain.ImportTask, error) {
	return s.tasks.List(ctx, organizationID, limit, offset)
}

func (s *Service) launchWorker(task domain.ImportTask) {
	baseCtx, baseCancel := context.WithCancel(context.Background())
	ctx := baseCtx
	cancelFunc := baseCancel
	if s.jobTimeout > 0 {
		timeoutCtx, timeoutCancel := context.WithTimeout(baseCtx, s.jobTimeout)
		ctx = timeoutCtx
		cancelFunc = func() {
			timeoutCancel()
			baseCancel()
		}
	}
	s.workerCancels.Store(task.ID, cancelFunc)

	coordinator := NewCoordinator(s.tasks, s.catalog, s.files, s.logger, s.chunkSize, s.relaxed)

	go func() {
		defer func() {
			cancelFunc()
			s.workerCancels.Delete(task.ID)
		}()
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.WithField("task", task.ID).Errorf("panic while processing import: %v", rec)
				if err := s.tasks.Complete(context.Background(), task.ID, domain.ImportTaskStatusError, 0, 0); err != nil {
					s.logger.WithField("task", task.ID).WithError(err).Error("failed to mark panicked task failed")
				}
			}
		}()

		if err := coordinator.Run(ctx, task); err != nil {
			if errors.Is(err, context.Canceled) {
				s.logger.WithField("task", task.ID).Info("import canceled")
				return
			}
			s.logger.WithField("task", task.ID).WithError(err).Error("import failed")
		}
	}()
}
