package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openpim/importer/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// taskStore implements TaskStore over postgres, with the generated error
// reports written to a local report directory.
type taskStore struct {
	pool      *pgxpool.Pool
	reportDir string
}

// NewTaskStore creates a postgres-backed task store.
func NewTaskStore(pool *pgxpool.Pool, reportDir string) TaskStore {
	return &taskStore{pool: pool, reportDir: filepath.Clean(reportDir)}
}

const taskColumns = `id, organization_id, created_by, file_name, file_ref, mapping, schema_version,
	duplicate_strategy, status, processed_rows, total_rows, error_count, report_path, execution_ms,
	created_at, updated_at`

// Create persists a new queued task.
func (s *taskStore) Create(ctx context.Context, task domain.ImportTask) (domain.ImportTask, error) {
	mappingJSON, err := json.Marshal(task.Mapping)
	if err != nil {
		return domain.ImportTask{}, fmt.Errorf("failed to encode mapping: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO import_tasks (
			id, organization_id, created_by, file_name, file_ref, mapping, schema_version,
			duplicate_strategy, status, processed_rows, error_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0, $10, $10)
		RETURNING `+taskColumns,
		task.ID, task.OrganizationID, task.CreatedBy, task.FileName, task.FileRef,
		mappingJSON, task.SchemaVersion, task.DuplicateStrategy, task.Status, task.CreatedAt,
	)

	created, err := scanTask(row)
	if err != nil {
		return domain.ImportTask{}, fmt.Errorf("failed to create import task: %w", err)
	}
	return created, nil
}

// GetByID retrieves a task by id.
func (s *taskStore) GetByID(ctx context.Context, id uuid.UUID) (domain.ImportTask, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM import_tasks WHERE id = $1`, id)
	task, err := scanTask(row)
	if err != nil {
		return domain.ImportTask{}, fmt.Errorf("failed to get import task: %w", err)
	}
	return task, nil
}

// List returns the organization's tasks, newest first.
func (s *taskStore) List(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]domain.ImportTask, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM import_tasks
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		organizationID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list import tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ImportTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// MarkRunning transitions a queued task to running.
func (s *taskStore) MarkRunning(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE import_tasks SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`,
		id, domain.ImportTaskStatusRunning, domain.ImportTaskStatusQueued,
	)
	if err != nil {
		return fmt.Errorf("failed to mark task running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s is not queued", id)
	}
	return nil
}

// UpdateProgress persists the processed count and, when given, the total.
func (s *taskStore) UpdateProgress(ctx context.Context, id uuid.UUID, processed int, totalRows *int) error {
	var total pgtype.Int4
	if totalRows != nil {
		total = pgtype.Int4{Int32: int32(*totalRows), Valid: true}
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE import_tasks
		SET processed_rows = $2, total_rows = COALESCE($3, total_rows), updated_at = now()
		WHERE id = $1`,
		id, processed, total,
	)
	if err != nil {
		return fmt.Errorf("failed to update task progress: %w", err)
	}
	return nil
}

// Complete records the terminal status, error count and execution time.
func (s *taskStore) Complete(ctx context.Context, id uuid.UUID, status domain.ImportTaskStatus, errorCount int, executionTime time.Duration) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE import_tasks
		SET status = $2, error_count = $3, execution_ms = $4, updated_at = now()
		WHERE id = $1`,
		id, status, errorCount, executionTime.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	return nil
}

// SaveErrorReport writes the CSV report to the report directory and stores
// its path on the task.
func (s *taskStore) SaveErrorReport(ctx context.Context, id uuid.UUID, report []byte) (string, error) {
	if err := os.MkdirAll(s.reportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(s.reportDir, fmt.Sprintf("%s.csv", id))
	if err := os.WriteFile(path, report, 0o644); err != nil {
		return "", fmt.Errorf("failed to write error report: %w", err)
	}

	_, err := s.pool.Exec(ctx, `
		UPDATE import_tasks SET report_path = $2, updated_at = now() WHERE id = $1`,
		id, path,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record report path: %w", err)
	}
	return path, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.ImportTask, error) {
	var (
		task        domain.ImportTask
		mappingJSON []byte
		totalRows   pgtype.Int4
		reportPath  pgtype.Text
		executionMS int64
	)
	err := row.Scan(
		&task.ID, &task.OrganizationID, &task.CreatedBy, &task.FileName, &task.FileRef,
		&mappingJSON, &task.SchemaVersion, &task.DuplicateStrategy, &task.Status,
		&task.ProcessedRows, &totalRows, &task.ErrorCount, &reportPath, &executionMS,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return domain.ImportTask{}, err
	}

	if err := json.Unmarshal(mappingJSON, &task.Mapping); err != nil {
		return domain.ImportTask{}, fmt.Errorf("failed to decode mapping: %w", err)
	}
	if totalRows.Valid {
		total := int(totalRows.Int32)
		task.TotalRows = &total
	}
	if reportPath.Valid && reportPath.String != "" {
		path := reportPath.String
		task.ReportPath = &path
	}
	task.ExecutionTime = time.Duration(executionMS) * time.Millisecond
	return task, nil
}
