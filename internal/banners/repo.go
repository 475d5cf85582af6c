package banners

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/ashimneupane/bazarly-backend/pkg/db"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
)

// Repository persists homepage banners and their product links.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a banner repository on the shared database client.
func NewRepository(client *dbpkg.Client) *Repository {
	return &Repository{db: client.DB()}
}

// Create inserts a banner.
func (r *Repository) Create(ctx context.Context, banner *models.Banner) error {
	return r.db.WithContext(ctx).Create(banner).Error
}

// Update saves banner changes.
func (r *Repository) Update(ctx context.Context, banner *models.Banner) error {
	return r.db.WithContext(ctx).Save(banner).Error
}

// Delete detaches linked products and removes the banner.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).
			Where("banner_id = ?", id).
			Update("banner_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Banner{}, "id = ?", id).Error
	})
}

// FindByID loads a banner with its curated products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Banner, error) {
	var banner models.Banner
	err := r.db.WithContext(ctx).
		Preload("Products").
		Where("id = ?", id).
		First(&banner).Error
	if err != nil {
		return nil, err
	}
	return &banner, nil
}

// List returns banners ordered for display. Pass a status to filter.
func (r *Repository) List(ctx context.Context, status *enums.BannerStatus) ([]models.Banner, error) {
	query := r.db.WithContext(ctx).Order("sort_order ASC, created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var banners []models.Banner
	if err := query.Find(&banners).Error; err != nil {
		return nil, err
	}
	return banners, nil
}

// AttachProducts points the given products at the banner.
func (r *Repository) AttachProducts(ctx context.Context, bannerID uuid.UUID, productIDs []uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id IN ?", productIDs).
		Update("banner_id", bannerID)
	return result.RowsAffected, result.Error
}

// DetachProducts clears the banner link from the given products.
func (r *Repository) DetachProducts(ctx context.Context, bannerID uuid.UUID, productIDs []uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("banner_id = ? AND id IN ?", bannerID, productIDs).
		Update("banner_id", nil)
	return result.RowsAffected, result.Error
}
