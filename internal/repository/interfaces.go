package repository

import (
	"context"
	"io"
	"time"

	"github.com/openpim/importer/internal/domain"

	"github.com/google/uuid"
)

// OrganizationRepository resolves tenants for scope validation.
type OrganizationRepository interface {
	Create(ctx context.Context, org domain.Organization) (domain.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error)
	List(ctx context.Context) ([]domain.Organization, error)
}

// TaskStore persists import tasks and their progress. Updates are atomic
// per field group so the coordinator can report progress without holding a
// full-task lock.
type TaskStore interface {
	Create(ctx context.Context, task domain.ImportTask) (domain.ImportTask, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ImportTask, error)
	List(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]domain.ImportTask, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	UpdateProgress(ctx context.Context, id uuid.UUID, processed int, totalRows *int) error
	Complete(ctx context.Context, id uuid.UUID, status domain.ImportTaskStatus, errorCount int, executionTime time.Duration) error
	// SaveErrorReport persists the generated CSV report and returns its path.
	SaveErrorReport(ctx context.Context, id uuid.UUID, report []byte) (string, error)
}

// CatalogRepository gives the import pipeline read access to the
// organization's catalog metadata and transactional write access to
// products and attribute values.
type CatalogRepository interface {
	ListFamilies(ctx context.Context, organizationID uuid.UUID) ([]domain.Family, error)
	// ListFamilyAttributeCodes returns family code -> attribute codes for
	// every family of the organization, used to build the per-task index.
	ListFamilyAttributeCodes(ctx context.Context, organizationID uuid.UUID) (map[string][]string, error)
	ListAttributes(ctx context.Context, organizationID uuid.UUID) ([]domain.Attribute, error)
	ListLocales(ctx context.Context, organizationID uuid.UUID) ([]domain.Locale, error)
	ListChannels(ctx context.Context, organizationID uuid.UUID) ([]domain.Channel, error)

	GetCategoryChild(ctx context.Context, organizationID uuid.UUID, parentID *uuid.UUID, name string) (domain.Category, bool, error)
	CreateCategory(ctx context.Context, category domain.Category) (domain.Category, error)

	GetProductBySKU(ctx context.Context, organizationID uuid.UUID, sku string) (domain.Product, bool, error)

	// WithinRowTx runs fn inside one transaction scoped to exactly one row.
	// Any error from fn rolls the whole row back.
	WithinRowTx(ctx context.Context, fn func(tx RowTx) error) error
}

// RowTx composes the atomic write operations available inside one row's
// transaction.
type RowTx interface {
	UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	ReplaceTags(ctx context.Context, productID uuid.UUID, tags []string) error
	UpsertAttributeValue(ctx context.Context, value domain.AttributeValue) error
}

// FileStore resolves a task's file reference to a readable stream.
type FileStore interface {
	Save(ctx context.Context, name string, data io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}
