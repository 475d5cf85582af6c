package deals

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/outbox"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Store is the persistence surface the deal service depends on.
type Store interface {
	Create(ctx context.Context, deal *models.Deal) error
	Update(ctx context.Context, deal *models.Deal) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	List(ctx context.Context, status *enums.DealStatus) ([]models.Deal, error)
	AttachProducts(ctx context.Context, dealID uuid.UUID, productIDs []uuid.UUID) (int64, error)
	DetachProducts(ctx context.Context, dealID uuid.UUID, productIDs []uuid.UUID) (int64, error)
	DetachAll(ctx context.Context, tx *gorm.DB, dealID uuid.UUID) (int64, error)
}

// EventEmitter queues domain events in the caller's transaction.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the deal service.
type ServiceParams struct {
	Runner TxRunner
	Store  Store
	Events EventEmitter
}

// Service exposes admin deal management.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Deal, error)
	Update(ctx context.Context, dealID uuid.UUID, input UpdateInput) (*models.Deal, error)
	Delete(ctx context.Context, dealID uuid.UUID, actor *outbox.ActorRef) error
	Get(ctx context.Context, dealID uuid.UUID) (*models.Deal, error)
	List(ctx context.Context, status *enums.DealStatus) ([]models.Deal, error)
	AttachProducts(ctx context.Context, dealID uuid.UUID, productIDs []uuid.UUID) (*models.Deal, error)
	DetachProducts(ctx context.Context, dealID uuid.UUID, productIDs []uuid.UUID) (*models.Deal, error)
	SetStatus(ctx context.Context, dealID uuid.UUID, status enums.DealStatus) (*models.Deal, error)
}

// CreateInput carries a new deal's fields.
type CreateInput struct {
	Title              string
	Description        *string
	DiscountPercentage decimal.Decimal
	StartsAt           *time.Time
	EndsAt             *time.Time
}

// UpdateInput carries mutable deal fields; nil means unchanged.
type UpdateInput struct {
	Title              *string
	Description        *string
	DiscountPercentage *decimal.Decimal
	StartsAt           *time.Time
	EndsAt             *time.Time
	ClearWindow        bool
}

type service struct {
	runner TxRunner
	store  Store
	events EventEmitter
}

// NewService builds the deal service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Runner == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	case params.Store == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deal store is required")
	case params.Events == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event emitter is required")
	}
	return &service{runner: params.Runner, store: params.Store, events: params.Events}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Deal, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deal title is required")
	}
	if err := validatePercentage(input.DiscountPercentage); err != nil {
		return nil, err
	}
	if err := validateWindow(input.StartsAt, input.EndsAt); err != nil {
		return nil, err
	}

	deal := &models.Deal{
		Title:              title,
		Description:        input.Description,
		DiscountPercentage: input.DiscountPercentage,
		Status:             enums.DealStatusEnabled,
		StartsAt:           input.StartsAt,
		EndsAt:             input.EndsAt,
	}
	if err := s.store.Create(ctx, deal); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create deal")
	}
	return deal, nil
}

func (s *service) Update(ctx context.Context, dealID uuid.UUID, input UpdateInput) (*models.Deal, error) {
	deal, err := s.load(ctx, dealID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "deal title cannot be empty")
		}
		deal.Title = title
	}
	if input.Description != nil {
		deal.Description = input.Description
	}
	if input.DiscountPercentage != nil {
		if err := validatePercentage(*input.DiscountPercentage); err != nil {
			return nil, err
		}
		deal.DiscountPercentage = *input.DiscountPercentage
	}
	if input.ClearWindow {
		deal.StartsAt = nil
		deal.EndsAt = nil
	} else {
		if input.StartsAt != nil {
			deal.StartsAt = input.StartsAt
		}
		if input.EndsAt != nil {
			deal.EndsAt = input.EndsAt
		}
		if err := validateWindow(deal.StartsAt, deal.EndsAt); err != nil {
			return nil, err
		}
	}

	if err := s.store.Update(ctx, deal); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update deal")
	}
	return deal, nil
}

// Delete detaches every linked product and removes the deal, all in one
// transaction so no product is left pointing at a missing deal.
func (s *service) Delete(ctx context.Context, dealID uuid.UUID, actor *outbox.ActorRef) error {
	if _, err := s.load(ctx, dealID); err != nil {
		return err
	}
	return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		detached, err := s.store.DetachAll(ctx, tx, dealID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach deal products")
		}
		if err := s.store.Delete(ctx, tx, dealID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete deal")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDealDeleted,
			AggregateType: enums.AggregateDeal,
			AggregateID:   dealID,
			Actor:         actor,
			Data:          map[string]any{"dealId": dealID, "detachedProducts": detached},
			Version:       1,
		})
	})
}

func (s *service) Get(ctx context.Context, dealID uuid.UUID) (*models.Deal, error) {
	return s.load(ctx, dealID)
}

func (s *service) List(ctx context.Context, status *enums.DealStatus) ([]models.Deal, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown deal status")
	}
	deals, err := s.store.List(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deals")
	}
	return deals, nil
}

func (s *service) AttachProducts(ctx context.Context, dealID uuid.UUID, productIDs []uuid.UUID) (*models.Deal, error) {
	if len(productIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product ids are required")
	}
	if _, err := s.load(ctx, dealID); err != nil {
		return nil, err
	}
	affected, err := s.store.AttachProducts(ctx, dealID, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach products")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no matching products")
	}
	return s.load(ctx, dealID)
}

func (s *service) DetachProducts(ctx context.Context, dealID uuid.UUID, productIDs []uuid.UUID) (*models.Deal, error) {
	if len(productIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product ids are required")
	}
	if _, err := s.load(ctx, dealID); err != nil {
		return nil, err
	}
	if _, err := s.store.DetachProducts(ctx, dealID, productIDs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach products")
	}
	return s.load(ctx, dealID)
}

func (s *service) SetStatus(ctx context.Context, dealID uuid.UUID, status enums.DealStatus) (*models.Deal, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown deal status")
	}
	deal, err := s.load(ctx, dealID)
	if err != nil {
		return nil, err
	}
	deal.Status = status
	if err := s.store.Update(ctx, deal); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update deal status")
	}
	return deal, nil
}

func (s *service) load(ctx context.Context, dealID uuid.UUID) (*models.Deal, error) {
	if dealID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deal id is required")
	}
	deal, err := s.store.FindByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "deal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deal")
	}
	return deal, nil
}

func validatePercentage(percentage decimal.Decimal) error {
	if percentage.LessThanOrEqual(decimal.Zero) || percentage.GreaterThan(decimal.NewFromInt(100)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount percentage must be between 0 and 100")
	}
	return nil
}

func validateWindow(startsAt, endsAt *time.Time) error {
	if startsAt != nil && endsAt != nil && !endsAt.After(*startsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "deal window must end after it starts")
	}
	return nil
}
