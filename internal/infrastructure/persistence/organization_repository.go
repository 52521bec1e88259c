package persistence

import (
	"context"
	"errors"

	"github.com/fiscaldesk/backend/internal/domain/identity"
	"github.com/fiscaldesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrganizationRepository implements identity.OrganizationRepository using GORM
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewGormOrganizationRepository creates a new GormOrganizationRepository
func NewGormOrganizationRepository(db *gorm.DB) *GormOrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// FindByID finds an organization by ID. Returns (nil, nil) when absent.
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Organization, error) {
	var model models.OrganizationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save persists an organization (insert or update)
func (r *GormOrganizationRepository) Save(ctx context.Context, organization *identity.Organization) error {
	model := models.OrganizationModelFromDomain(organization)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormOrganizationRepository implements identity.OrganizationRepository
var _ identity.OrganizationRepository = (*GormOrganizationRepository)(nil)
