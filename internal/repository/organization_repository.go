package repository

import (
	"context"
	"fmt"

	"github.com/openpim/importer/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// organizationRepository implements OrganizationRepository over postgres.
type organizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository creates a postgres-backed organization repository.
func NewOrganizationRepository(pool *pgxpool.Pool) OrganizationRepository {
	return &organizationRepository{pool: pool}
}

// Create creates a new organization.
func (r *organizationRepository) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO organizations (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, name, description, created_at, updated_at`,
		org.ID, org.Name, pgtype.Text{String: org.Description, Valid: true}, org.CreatedAt,
	)
	return scanOrganization(row)
}

// GetByID retrieves an organization by id.
func (r *organizationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM organizations WHERE id = $1`,
		id,
	)
	return scanOrganization(row)
}

// List retrieves all organizations.
func (r *organizationRepository) List(ctx context.Context) ([]domain.Organization, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM organizations ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var organizations []domain.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		organizations = append(organizations, org)
	}
	return organizations, rows.Err()
}

func scanOrganization(row rowScanner) (domain.Organization, error) {
	var org domain.Organization
	var description pgtype.Text
	if err := row.Scan(&org.ID, &org.Name, &description, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return domain.Organization{}, fmt.Errorf("failed to scan organization: %w", err)
	}
	org.Description = description.String
	return org, nil
}
