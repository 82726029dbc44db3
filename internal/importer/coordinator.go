package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/openpim/importer/internal/domain"
	"github.com/openpim/importer/internal/mapping"
	"github.com/openpim/importer/internal/reader"
	"github.com/openpim/importer/internal/refdata"
	"github.com/openpim/importer/internal/repository"

	"github.com/sirupsen/logrus"
)

// DefaultChunkSize is the number of rows processed between progress writes
// and cancellation checks.
const DefaultChunkSize = 1000

// Coordinator drives one import task end-to-end: it validates the mapping,
// builds the reference caches, streams the file in chunks, applies rows,
// and computes the terminal status. Row-level errors are recovered locally;
// anything else aborts the task.
type Coordinator struct {
	tasks     repository.TaskStore
	catalog   repository.CatalogRepository
	files     repository.FileStore
	logger    logrus.FieldLogger
	chunkSize int
	relaxed   bool
	now       func() time.Time
}

// NewCoordinator wires a coordinator over the surrounding stores.
func NewCoordinator(tasks repository.TaskStore, catalog repository.CatalogRepository, files repository.FileStore, logger logrus.FieldLogger, chunkSize int, relaxed bool) *Coordinator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Coordinator{
		tasks:     tasks,
		catalog:   catalog,
		files:     files,
		logger:    logger,
		chunkSize: chunkSize,
		relaxed:   relaxed,
		now:       time.Now,
	}
}

// Run processes the task until the stream ends, a fatal error occurs, or
// cancellation is observed at a chunk boundary. All terminal bookkeeping
// (status, error count, report, execution time) is persisted before Run
// returns.
func (c *Coordinator) Run(ctx context.Context, task domain.ImportTask) error {
	start := c.now()
	log := c.logger.WithFields(logrus.Fields{
		"task":         task.ID,
		"organization": task.OrganizationID,
		"file":         task.FileName,
	})

	if err := c.tasks.MarkRunning(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to mark task running: %w", err)
	}
	log.Info("import started")

	total, headers, err := c.scanFile(ctx, task)
	if err != nil {
		return c.failTask(ctx, task, start, nil, log, err)
	}
	if err := c.tasks.UpdateProgress(ctx, task.ID, 0, &total); err != nil {
		return c.failTask(ctx, task, start, nil, log, fmt.Errorf("failed to persist total row count: %w", err))
	}

	mapper := mapping.NewMapper(task.Mapping, domain.FieldSchemaFor(task.SchemaVersion))
	if err := mapper.Validate(headers); err != nil {
		return c.failTask(ctx, task, start, nil, log, err)
	}

	resolver, err := refdata.NewResolver(ctx, c.catalog, task.OrganizationID, c.relaxed)
	if err != nil {
		return c.failTask(ctx, task, start, nil, log, err)
	}

	source, err := c.files.Open(ctx, task.FileRef)
	if err != nil {
		return c.failTask(ctx, task, start, nil, log, fmt.Errorf("failed to open task file: %w", err))
	}
	rows, err := reader.Open(source, task.FileName)
	if err != nil {
		return c.failTask(ctx, task, start, nil, log, err)
	}
	defer func() { _ = rows.Close() }()

	validator := NewRowValidator(resolver)
	applier := NewRowApplier(c.catalog, resolver, task.OrganizationID, task.DuplicateStrategy)
	sink := NewErrorSink()

	processed := 0
	chunkRows := 0
	canceled := false

	for {
		record, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return c.failTask(ctx, task, start, sink, log, err)
		}

		// The reader tracks the physical file row, so report entries line
		// up with the user's spreadsheet even across blank lines.
		rowNumber := rows.Row()
		row := mapper.MapRecord(record, rowNumber)

		var outcome domain.RowOutcome
		validated, rowErrs := validator.Validate(row)
		if len(rowErrs) > 0 {
			outcome = domain.FailedOutcome(row.SKU(), rowErrs...)
		} else {
			outcome = applier.Apply(ctx, validated)
		}

		processed++
		chunkRows++

		switch outcome.Kind {
		case domain.RowFailed:
			sink.Record(outcome.Errors...)
			for _, rowErr := range outcome.Errors {
				log.WithFields(logrus.Fields{
					"row":  rowErr.RowNumber,
					"sku":  rowErr.SKU,
					"code": rowErr.Code,
				}).Warn("row failed")
			}
		case domain.RowSkipped:
			log.WithFields(logrus.Fields{
				"row":    rowNumber,
				"sku":    outcome.SKU,
				"reason": outcome.SkipReason,
			}).Debug("row skipped")
		}

		if chunkRows >= c.chunkSize {
			chunkRows = 0
			if err := c.tasks.UpdateProgress(ctx, task.ID, processed, nil); err != nil {
				log.WithError(err).Warn("failed to persist progress")
			}
			// Cancellation is only honored between chunks so no row
			// transaction is ever left half-applied.
			if ctx.Err() != nil {
				canceled = true
				break
			}
		}
	}

	persistCtx := ctx
	if persistCtx.Err() != nil {
		persistCtx = context.Background()
	}

	if err := c.tasks.UpdateProgress(persistCtx, task.ID, processed, nil); err != nil {
		log.WithError(err).Warn("failed to persist final progress")
	}

	status := domain.ImportTaskStatusSuccess
	switch {
	case canceled:
		status = domain.ImportTaskStatusError
	case sink.HasErrors() && processed > 0:
		status = domain.ImportTaskStatusPartialSuccess
	case sink.HasErrors():
		status = domain.ImportTaskStatusError
	}

	if sink.HasErrors() {
		if err := c.saveReport(persistCtx, task, sink, log); err != nil {
			log.WithError(err).Error("failed to save error report")
		}
	}

	executionTime := c.now().Sub(start)
	if err := c.tasks.Complete(persistCtx, task.ID, status, sink.Count(), executionTime); err != nil {
		return fmt.Errorf("failed to finalize task: %w", err)
	}

	log.WithFields(logrus.Fields{
		"status":    status,
		"processed": processed,
		"errors":    sink.Count(),
		"duration":  executionTime,
	}).Info("import finished")

	if canceled {
		return context.Canceled
	}
	return nil
}

// scanFile makes the counting pass over a fresh reader, returning the data
// row count and the header row.
func (c *Coordinator) scanFile(ctx context.Context, task domain.ImportTask) (int, []string, error) {
	source, err := c.files.Open(ctx, task.FileRef)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open task file: %w", err)
	}
	rows, err := reader.Open(source, task.FileName)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = rows.Close() }()

	count := 0
	for {
		_, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, nil, err
		}
		count++
	}
	return count, rows.Headers(), nil
}

// failTask aborts the whole task: it appends a single task-level error to
// the report, persists the error status, and propagates the cause.
func (c *Coordinator) failTask(ctx context.Context, task domain.ImportTask, start time.Time, sink *ErrorSink, log logrus.FieldLogger, cause error) error {
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	if sink == nil {
		sink = NewErrorSink()
	}
	sink.Record(domain.RowError{
		RowNumber: 0,
		Code:      domain.ErrCodeTaskFailed,
		Message:   cause.Error(),
	})

	if err := c.saveReport(ctx, task, sink, log); err != nil {
		log.WithError(err).Error("failed to save error report")
	}

	executionTime := c.now().Sub(start)
	if err := c.tasks.Complete(ctx, task.ID, domain.ImportTaskStatusError, sink.Count(), executionTime); err != nil {
		log.WithError(err).Error("failed to mark task failed")
	}

	log.WithError(cause).Error("import aborted")
	return cause
}

func (c *Coordinator) saveReport(ctx context.Context, task domain.ImportTask, sink *ErrorSink, log logrus.FieldLogger) error {
	report, err := sink.ReportCSV()
	if err != nil {
		return err
	}
	path, err := c.tasks.SaveErrorReport(ctx, task.ID, report)
	if err != nil {
		return err
	}
	log.WithField("report", path).Info("error report written")
	return nil
}
