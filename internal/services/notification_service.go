package services

import (
	"context"
	"errors"
	"strings"

	"stockroom/internal/domain"
	"stockroom/internal/repos"
)

type NotificationInput struct {
	Type        string `json:"type" validate:"required,oneof=low_stock vendor_contact system"`
	Message     string `json:"message" validate:"required,min=1,max=500"`
	UserID      int64  `json:"user_id" validate:"required,gt=0"`
	VendorID    *int64 `json:"vendor_id" validate:"omitempty,gt=0"`
	InventoryID *int64 `json:"inventory_id" validate:"omitempty,gt=0"`
}

// Dispatcher stores then pushes a notification.
type Dispatcher interface {
	Dispatch(ctx context.Context, in domain.NewNotification) (*domain.Notification, error)
}

// Live is the in-process realtime channel.
type Live interface {
	Push(ctx context.Context, n *domain.Notification) error
	NotifyRead(userID, notificationID int64)
	NotifyAllRead(userID int64)
}

type NotificationService struct {
	Store    *repos.NotificationRepo
	Dispatch Dispatcher
	Live     Live
}

func NewNotificationService(store *repos.NotificationRepo, dispatch Dispatcher, live Live) *NotificationService {
	return &NotificationService{Store: store, Dispatch: dispatch, Live: live}
}

func (s *NotificationService) List(userID int64) ([]domain.Notification, error) {
	return s.Store.List(userID, 0)
}

func (s *NotificationService) Recent(userID int64, limit int) ([]domain.Notification, error) {
	return s.Store.List(userID, limit)
}

func (s *NotificationService) UnreadCount(userID int64) (int, error) {
	return s.Store.UnreadCount(userID)
}

func (s *NotificationService) Create(ctx context.Context, in NotificationInput) (*domain.Notification, error) {
	in.Message = strings.TrimSpace(in.Message)
	if err := check(in); err != nil {
		return nil, err
	}
	return s.Dispatch.Dispatch(ctx, domain.NewNotification{
		Type:        domain.NotificationType(in.Type),
		Message:     in.Message,
		UserID:      in.UserID,
		VendorID:    in.VendorID,
		InventoryID: in.InventoryID,
	})
}

// Deliver pushes a notification stored elsewhere to local connections. Callers
// may only deliver to themselves. With a store attached the row is re-read by
// id and the stored copy is what goes out.
func (s *NotificationService) Deliver(ctx context.Context, callerID int64, n *domain.Notification) error {
	if n == nil || n.ID <= 0 || !n.Type.Valid() {
		return invalid("notification", "must be a stored notification")
	}
	if n.UserID != callerID {
		return ErrForbidden
	}
	if s.Store != nil {
		stored, err := s.Store.Get(n.ID)
		if err != nil {
			return s.mapNotFound(err)
		}
		if stored.UserID != callerID {
			return ErrForbidden
		}
		n = stored
	}
	if s.Live == nil {
		return nil
	}
	return s.Live.Push(ctx, n)
}

func (s *NotificationService) MarkRead(id, userID int64) error {
	if err := s.Store.MarkRead(id, userID); err != nil {
		return s.mapNotFound(err)
	}
	if s.Live != nil {
		s.Live.NotifyRead(userID, id)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID int64) (int64, error) {
	n, err := s.Store.MarkAllRead(userID)
	if err != nil {
		return 0, err
	}
	if s.Live != nil {
		s.Live.NotifyAllRead(userID)
	}
	return n, nil
}

func (s *NotificationService) Delete(id, userID int64) error {
	return s.mapNotFound(s.Store.Delete(id, userID))
}

func (s *NotificationService) mapNotFound(err error) error {
	if errors.Is(err, repos.ErrNotFound) {
		return notFound("Notification not found")
	}
	return err
}
