package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/openpim/importer/internal/domain"
	"github.com/openpim/importer/internal/repository"

	"github.com/google/uuid"
)

type stubOrganizationRepo struct {
	orgs map[uuid.UUID]domain.Organization
}

func newStubOrganizationRepo(orgs ...domain.Organization) *stubOrganizationRepo {
	repo := &stubOrganizationRepo{orgs: make(map[uuid.UUID]domain.Organization)}
	for _, org := range orgs {
		repo.orgs[org.ID] = org
	}
	return repo
}

func (s *stubOrganizationRepo) Create(_ context.Context, org domain.Organization) (domain.Organization, error) {
	s.orgs[org.ID] = org
	return org, nil
}

func (s *stubOrganizationRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Organization, error) {
	org, ok := s.orgs[id]
	if !ok {
		return domain.Organization{}, fmt.Errorf("organization %s not found", id)
	}
	return org, nil
}

func (s *stubOrganizationRepo) List(_ context.Context) ([]domain.Organization, error) {
	var orgs []domain.Organization
	for _, org := range s.orgs {
		orgs = append(orgs, org)
	}
	return orgs, nil
}

type progressUpdate struct {
	processed int
	totalRows *int
}

type stubTaskStore struct {
	mu       sync.Mutex
	tasks    map[uuid.UUID]domain.ImportTask
	reports  map[uuid.UUID][]byte
	progress []progressUpdate

	markRunningErr error
}

func newStubTaskStore(tasks ...domain.ImportTask) *stubTaskStore {
	store := &stubTaskStore{
		tasks:   make(map[uuid.UUID]domain.ImportTask),
		reports: make(map[uuid.UUID][]byte),
	}
	for _, task := range tasks {
		store.tasks[task.ID] = task
	}
	return store
}

func (s *stubTaskStore) Create(_ context.Context, task domain.ImportTask) (domain.ImportTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return task, nil
}

func (s *stubTaskStore) GetByID(_ context.Context, id uuid.UUID) (domain.ImportTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return domain.ImportTask{}, fmt.Errorf("task %s not found", id)
	}
	return task, nil
}

func (s *stubTaskStore) List(_ context.Context, organizationID uuid.UUID, _, _ int) ([]domain.ImportTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tasks []domain.ImportTask
	for _, task := range s.tasks {
		if task.OrganizationID == organizationID {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (s *stubTaskStore) MarkRunning(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markRunningErr != nil {
		return s.markRunningErr
	}
	task := s.tasks[id]
	task.Status = domain.ImportTaskStatusRunning
	s.tasks[id] = task
	return nil
}

func (s *stubTaskStore) UpdateProgress(_ context.Context, id uuid.UUID, processed int, totalRows *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, progressUpdate{processed: processed, totalRows: totalRows})
	task := s.tasks[id]
	task.ProcessedRows = processed
	if totalRows != nil {
		task.TotalRows = totalRows
	}
	s.tasks[id] = task
	return nil
}

func (s *stubTaskStore) Complete(_ context.Context, id uuid.UUID, status domain.ImportTaskStatus, errorCount int, executionTime time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := s.tasks[id]
	task.Status = status
	task.ErrorCount = errorCount
	task.ExecutionTime = executionTime
	s.tasks[id] = task
	return nil
}

func (s *stubTaskStore) SaveErrorReport(_ context.Context, id uuid.UUID, report []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[id] = report
	path := "/reports/" + id.String() + ".csv"
	task := s.tasks[id]
	task.ReportPath = &path
	s.tasks[id] = task
	return path, nil
}

func (s *stubTaskStore) task(id uuid.UUID) domain.ImportTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id]
}

func (s *stubTaskStore) report(id uuid.UUID) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports[id]
}

// stubCatalog is an in-memory CatalogRepository whose row transaction is the
// catalog itself, so applied writes are directly inspectable.
type stubCatalog struct {
	mu sync.Mutex

	families    []domain.Family
	familyAttrs map[string][]string
	attributes  []domain.Attribute
	locales     []domain.Locale
	channels    []domain.Channel
	categories  []domain.Category

	products map[string]domain.Product
	tags     map[uuid.UUID][]string
	values   []domain.AttributeValue

	lookupErr error
	txErr     error
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		familyAttrs: make(map[string][]string),
		products:    make(map[string]domain.Product),
		tags:        make(map[uuid.UUID][]string),
	}
}

func (s *stubCatalog) ListFamilies(_ context.Context, _ uuid.UUID) ([]domain.Family, error) {
	return s.families, nil
}

func (s *stubCatalog) ListFamilyAttributeCodes(_ context.Context, _ uuid.UUID) (map[string][]string, error) {
	return s.familyAttrs, nil
}

func (s *stubCatalog) ListAttributes(_ context.Context, _ uuid.UUID) ([]domain.Attribute, error) {
	return s.attributes, nil
}

func (s *stubCatalog) ListLocales(_ context.Context, _ uuid.UUID) ([]domain.Locale, error) {
	return s.locales, nil
}

func (s *stubCatalog) ListChannels(_ context.Context, _ uuid.UUID) ([]domain.Channel, error) {
	return s.channels, nil
}

func (s *stubCatalog) GetCategoryChild(_ context.Context, organizationID uuid.UUID, parentID *uuid.UUID, name string) (domain.Category, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, category := range s.categories {
		if category.OrganizationID != organizationID || category.Name != name {
			continue
		}
		if parentID == nil && category.ParentID == nil {
			return category, true, nil
		}
		if parentID != nil && category.ParentID != nil && *parentID == *category.ParentID {
			return category, true, nil
		}
	}
	return domain.Category{}, false, nil
}

func (s *stubCatalog) CreateCategory(_ context.Context, category domain.Category) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, category)
	return category, nil
}

func (s *stubCatalog) GetProductBySKU(_ context.Context, _ uuid.UUID, sku string) (domain.Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return domain.Product{}, false, s.lookupErr
	}
	product, ok := s.products[sku]
	return product, ok, nil
}

func (s *stubCatalog) WithinRowTx(_ context.Context, fn func(tx repository.RowTx) error) error {
	if s.txErr != nil {
		return s.txErr
	}
	return fn(s)
}

func (s *stubCatalog) UpsertProduct(_ context.Context, product domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.products[product.SKU]; ok {
		product.ID = existing.ID
	}
	s.products[product.SKU] = product
	return product, nil
}

func (s *stubCatalog) ReplaceTags(_ context.Context, productID uuid.UUID, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[productID] = tags
	return nil
}

func (s *stubCatalog) UpsertAttributeValue(_ context.Context, value domain.AttributeValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, value)
	return nil
}

func (s *stubCatalog) product(sku string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[sku]
	return product, ok
}

type stubFileStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newStubFileStore() *stubFileStore {
	return &stubFileStore{files: make(map[string][]byte)}
}

func (s *stubFileStore) put(ref string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[ref] = data
}

func (s *stubFileStore) Save(_ context.Context, name string, data io.Reader) (string, error) {
	content, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	ref := uuid.NewString() + "-" + name
	s.put(ref, content)
	return ref, nil
}

func (s *stubFileStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[ref]
	if !ok {
		return nil, fmt.Errorf("file %s not found", ref)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}
