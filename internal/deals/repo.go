package deals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/ashimneupane/bazarly-backend/pkg/db"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
)

// Repository persists deals and their product links.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a deal repository on the shared database client.
func NewRepository(client *dbpkg.Client) *Repository {
	return &Repository{db: client.DB()}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a deal.
func (r *Repository) Create(ctx context.Context, deal *models.Deal) error {
	return r.db.WithContext(ctx).Create(deal).Error
}

// Update saves deal changes.
func (r *Repository) Update(ctx context.Context, deal *models.Deal) error {
	return r.db.WithContext(ctx).Save(deal).Error
}

// Delete removes the deal row. Product links must be detached first.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Deal{}, "id = ?", id).Error
}

// FindByID loads a deal with its linked products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.WithContext(ctx).
		Preload("Products").
		Where("id = ?", id).
		First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// List returns all deals, newest first. Deal counts stay small so this is
// not paginated.
func (r *Repository) List(ctx context.Context, status *enums.DealStatus) ([]models.Deal, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var deals []models.Deal
	if err := query.Find(&deals).Error; err != nil {
		return nil, err
	}
	return deals, nil
}

// AttachProducts points the given products at the deal.
func (r *Repository) AttachProducts(ctx context.Context, dealID uuid.UUID, productIDs []uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id IN ?", productIDs).
		Update("deal_id", dealID)
	return result.RowsAffected, result.Error
}

// DetachProducts clears the deal link from the given products.
func (r *Repository) DetachProducts(ctx context.Context, dealID uuid.UUID, productIDs []uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("deal_id = ? AND id IN ?", dealID, productIDs).
		Update("deal_id", nil)
	return result.RowsAffected, result.Error
}

// DetachAll clears the deal link from every product still pointing at it.
func (r *Repository) DetachAll(ctx context.Context, dealID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("deal_id = ?", dealID).
		Update("deal_id", nil)
	return result.RowsAffected, result.Error
}
