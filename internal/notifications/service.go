package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashimneupane/bazarly-backend/internal/orders"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/pagination"
)

// Store is the persistence surface the notification service depends on.
type Store interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, recipient enums.Principal, page pagination.Params) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID, recipient enums.Principal) (int64, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID, recipient enums.Principal, at time.Time) (int64, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, recipient enums.Principal, at time.Time) (int64, error)
}

// ServiceParams groups dependencies for the notification service.
type ServiceParams struct {
	Store Store
	Now   func() time.Time
}

// CreateInput carries a new notification.
type CreateInput struct {
	RecipientID uuid.UUID
	Recipient   enums.Principal
	Type        enums.NotificationType
	Title       string
	Body        string
	OrderID     *uuid.UUID
}

// NotificationDTO is the API projection of a notification.
type NotificationDTO struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	OrderID   *uuid.UUID             `json:"order_id,omitempty"`
	Read      bool                   `json:"read"`
	CreatedAt time.Time              `json:"created_at"`
}

// Page is one cursor page of notifications plus the unread counter.
type Page struct {
	Items       []NotificationDTO `json:"items"`
	UnreadCount int64             `json:"unread_count"`
	NextCursor  string            `json:"next_cursor,omitempty"`
}

// Service exposes in-app notifications for users and vendors.
type Service interface {
	Create(ctx context.Context, input CreateInput) error
	List(ctx context.Context, recipientID uuid.UUID, recipient enums.Principal, page pagination.Params) (*Page, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID, recipient enums.Principal) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, recipient enums.Principal) (int64, error)
}

type service struct {
	store Store
	now   func() time.Time
}

// NewService builds the notification service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification store is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{store: params.Store, now: now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) error {
	if input.RecipientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient id is required")
	}
	if !input.Recipient.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown recipient type")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type")
	}
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}

	notification := &models.Notification{
		RecipientID:   input.RecipientID,
		RecipientType: input.Recipient,
		Type:          input.Type,
		Title:         input.Title,
		Body:          input.Body,
		OrderID:       input.OrderID,
	}
	if err := s.store.Create(ctx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return nil
}

func (s *service) List(ctx context.Context, recipientID uuid.UUID, recipient enums.Principal, page pagination.Params) (*Page, error) {
	rows, err := s.store.ListByRecipient(ctx, recipientID, recipient, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	unread, err := s.store.CountUnread(ctx, recipientID, recipient)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}

	trimmed, hasMore := pagination.Trim(rows, page.Limit)
	result := &Page{
		Items:       make([]NotificationDTO, 0, len(trimmed)),
		UnreadCount: unread,
	}
	for _, row := range trimmed {
		result.Items = append(result.Items, NotificationDTO{
			ID:        row.ID,
			Type:      row.Type,
			Title:     row.Title,
			Body:      row.Body,
			OrderID:   row.OrderID,
			Read:      row.IsRead(),
			CreatedAt: row.CreatedAt,
		})
	}
	if hasMore && len(trimmed) > 0 {
		last := trimmed[len(trimmed)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return result, nil
}

func (s *service) MarkRead(ctx context.Context, id, recipientID uuid.UUID, recipient enums.Principal) error {
	affected, err := s.store.MarkRead(ctx, id, recipientID, recipient, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found or already read")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, recipientID uuid.UUID, recipient enums.Principal) (int64, error) {
	affected, err := s.store.MarkAllRead(ctx, recipientID, recipient, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return affected, nil
}

// OrderNotifier writes order notices inside the order transaction. It backs
// the Notifier dependency of the order service.
type OrderNotifier struct {
	repo *Repository
}

// NewOrderNotifier builds the transactional notifier.
func NewOrderNotifier(repo *Repository) *OrderNotifier {
	return &OrderNotifier{repo: repo}
}

// NotifyInTx stores an order notice using the caller's transaction.
func (n *OrderNotifier) NotifyInTx(ctx context.Context, tx *gorm.DB, notice orders.Notice) error {
	return n.repo.WithTx(tx).Create(ctx, &models.Notification{
		RecipientID:   notice.RecipientID,
		RecipientType: notice.Recipient,
		Type:          notice.Type,
		Title:         notice.Title,
		Body:          notice.Body,
		OrderID:       notice.OrderID,
	})
}
