package deals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
)

// repoStore adapts Repository to the Store interface, binding the delete
// path to the caller's transaction.
type repoStore struct {
	repo *Repository
}

// NewStore wraps the deal repository for use by the service.
func NewStore(repo *Repository) Store {
	return repoStore{repo: repo}
}

func (a repoStore) Create(ctx context.Context, deal *models.Deal) error {
	return a.repo.Create(ctx, deal)
}

func (a repoStore) Update(ctx context.Context, deal *models.Deal) error {
	return a.repo.Update(ctx, deal)
}

func (a repoStore) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return a.repo.WithTx(tx).Delete(ctx, id)
}

func (a repoStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	return a.repo.FindByID(ctx, id)
}

func (a repoStore) List(ctx context.Context, status *enums.DealStatus) ([]models.Deal, error) {
	return a.repo.List(ctx, status)
}

func (a repoStore) AttachProducts(ctx context.Context, dealID uuid.UUID, productIDs []uuid.UUID) (int64, error) {
	return a.repo.AttachProducts(ctx, dealID, productIDs)
}

func (a repoStore) DetachProducts(ctx context.Context, dealID uuid.UUID, productIDs []uuid.UUID) (int64, error) {
	return a.repo.DetachProducts(ctx, dealID, productIDs)
}

func (a repoStore) DetachAll(ctx context.Context, tx *gorm.DB, dealID uuid.UUID) (int64, error) {
	return a.repo.WithTx(tx).DetachAll(ctx, dealID)
}
