package banners

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashimneupane/bazarly-backend/internal/products"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/pagination"
)

// Store is the persistence surface the banner service depends on.
type Store interface {
	Create(ctx context.Context, banner *models.Banner) error
	Update(ctx context.Context, banner *models.Banner) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Banner, error)
	List(ctx context.Context, status *enums.BannerStatus) ([]models.Banner, error)
	AttachProducts(ctx context.Context, bannerID uuid.UUID, productIDs []uuid.UUID) (int64, error)
	DetachProducts(ctx context.Context, bannerID uuid.UUID, productIDs []uuid.UUID) (int64, error)
}

// Catalog lists products for homepage sections.
type Catalog interface {
	List(ctx context.Context, filter products.ListFilter, page pagination.Params) (*products.ProductPage, error)
}

// DealSource lists deals for the homepage.
type DealSource interface {
	List(ctx context.Context, status *enums.DealStatus) ([]models.Deal, error)
}

// ServiceParams groups dependencies for the banner service.
type ServiceParams struct {
	Store   Store
	Catalog Catalog
	Deals   DealSource
}

// Service exposes banner management and the curated homepage payload.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Banner, error)
	Update(ctx context.Context, bannerID uuid.UUID, input UpdateInput) (*models.Banner, error)
	Delete(ctx context.Context, bannerID uuid.UUID) error
	Get(ctx context.Context, bannerID uuid.UUID) (*models.Banner, error)
	List(ctx context.Context, status *enums.BannerStatus) ([]models.Banner, error)
	AttachProducts(ctx context.Context, bannerID uuid.UUID, productIDs []uuid.UUID) (*models.Banner, error)
	DetachProducts(ctx context.Context, bannerID uuid.UUID, productIDs []uuid.UUID) (*models.Banner, error)
	Homepage(ctx context.Context) (*HomepageDTO, error)
}

// CreateInput carries a new banner's fields.
type CreateInput struct {
	Title     string
	ImageURL  string
	TargetURL *string
	SortOrder int
}

// UpdateInput carries mutable banner fields; nil means unchanged.
type UpdateInput struct {
	Title     *string
	ImageURL  *string
	TargetURL *string
	Status    *enums.BannerStatus
	SortOrder *int
}

// BannerDTO is the homepage projection of a banner.
type BannerDTO struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	ImageURL  string    `json:"image_url"`
	TargetURL *string   `json:"target_url,omitempty"`
	SortOrder int       `json:"sort_order"`
}

// HomepageDTO is the storefront landing payload: active banners in display
// order, featured products, and currently enabled deals.
type HomepageDTO struct {
	Banners  []BannerDTO           `json:"banners"`
	Featured []products.ProductDTO `json:"featured_products"`
	Deals    []models.Deal         `json:"deals"`
}

type service struct {
	store   Store
	catalog Catalog
	deals   DealSource
}

// NewService builds the banner service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Store == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "banner store is required")
	case params.Catalog == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog is required")
	case params.Deals == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deal source is required")
	}
	return &service{store: params.Store, catalog: params.Catalog, deals: params.Deals}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Banner, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "banner title is required")
	}
	if strings.TrimSpace(input.ImageURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "banner image is required")
	}

	banner := &models.Banner{
		Title:     title,
		ImageURL:  input.ImageURL,
		TargetURL: input.TargetURL,
		Status:    enums.BannerStatusActive,
		SortOrder: input.SortOrder,
	}
	if err := s.store.Create(ctx, banner); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create banner")
	}
	return banner, nil
}

func (s *service) Update(ctx context.Context, bannerID uuid.UUID, input UpdateInput) (*models.Banner, error) {
	banner, err := s.load(ctx, bannerID)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "banner title cannot be empty")
		}
		banner.Title = title
	}
	if input.ImageURL != nil {
		if strings.TrimSpace(*input.ImageURL) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "banner image cannot be empty")
		}
		banner.ImageURL = *input.ImageURL
	}
	if input.TargetURL != nil {
		banner.TargetURL = input.TargetURL
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown banner status")
		}
		banner.Status = *input.Status
	}
	if input.SortOrder != nil {
		banner.SortOrder = *input.SortOrder
	}
	if err := s.store.Update(ctx, banner); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update banner")
	}
	return banner, nil
}

func (s *service) Delete(ctx context.Context, bannerID uuid.UUID) error {
	if _, err := s.load(ctx, bannerID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, bannerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete banner")
	}
	return nil
}

func (s *service) Get(ctx context.Context, bannerID uuid.UUID) (*models.Banner, error) {
	return s.load(ctx, bannerID)
}

func (s *service) List(ctx context.Context, status *enums.BannerStatus) ([]models.Banner, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown banner status")
	}
	banners, err := s.store.List(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list banners")
	}
	return banners, nil
}

func (s *service) AttachProducts(ctx context.Context, bannerID uuid.UUID, productIDs []uuid.UUID) (*models.Banner, error) {
	if len(productIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product ids are required")
	}
	if _, err := s.load(ctx, bannerID); err != nil {
		return nil, err
	}
	affected, err := s.store.AttachProducts(ctx, bannerID, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach products")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no matching products")
	}
	return s.load(ctx, bannerID)
}

func (s *service) DetachProducts(ctx context.Context, bannerID uuid.UUID, productIDs []uuid.UUID) (*models.Banner, error) {
	if len(productIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product ids are required")
	}
	if _, err := s.load(ctx, bannerID); err != nil {
		return nil, err
	}
	if _, err := s.store.DetachProducts(ctx, bannerID, productIDs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach products")
	}
	return s.load(ctx, bannerID)
}

func (s *service) Homepage(ctx context.Context) (*HomepageDTO, error) {
	active := enums.BannerStatusActive
	banners, err := s.store.List(ctx, &active)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list banners")
	}

	featured, err := s.catalog.List(ctx, products.ListFilter{FeaturedOnly: true}, pagination.Params{Limit: pagination.DefaultLimit})
	if err != nil {
		return nil, err
	}

	enabled := enums.DealStatusEnabled
	deals, err := s.deals.List(ctx, &enabled)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deals")
	}

	payload := &HomepageDTO{
		Banners:  make([]BannerDTO, 0, len(banners)),
		Featured: featured.Items,
		Deals:    deals,
	}
	for _, banner := range banners {
		payload.Banners = append(payload.Banners, BannerDTO{
			ID:        banner.ID,
			Title:     banner.Title,
			ImageURL:  banner.ImageURL,
			TargetURL: banner.TargetURL,
			SortOrder: banner.SortOrder,
		})
	}
	return payload, nil
}

func (s *service) load(ctx context.Context, bannerID uuid.UUID) (*models.Banner, error) {
	if bannerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "banner id is required")
	}
	banner, err := s.store.FindByID(ctx, bannerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "banner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load banner")
	}
	return banner, nil
}
