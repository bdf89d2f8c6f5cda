package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/campusperks/realtime-service/internal/auth"
	"github.com/campusperks/realtime-service/internal/events"
	"github.com/campusperks/realtime-service/internal/model"
	"github.com/campusperks/realtime-service/internal/repository"
)

// Repository is the slice of the mongo repo the service needs.
type Repository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListForUser(ctx context.Context, userID, role string, f repository.ListFilter) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, userID, role string) error
	MarkAllRead(ctx context.Context, userID, role string) (int64, error)
	Delete(ctx context.Context, id, userID, role string) error
	CountUnread(ctx context.Context, userID, role string) (int64, error)
}

type Emitter interface {
	Emit(ev events.Event) error
}

// NotificationService validates and persists notification records and fans
// out the matching realtime event after each successful write. Fan-out
// failures are logged, never surfaced: the store is authoritative and
// clients re-fetch on reconnect.
type NotificationService struct {
	repo    Repository
	emitter Emitter
	logger  *zap.SugaredLogger
}

func New(repo Repository, emitter Emitter, logger *zap.SugaredLogger) *NotificationService {
	return &NotificationService{repo: repo, emitter: emitter, logger: logger}
}

// Create validates addressing, inserts the record, then pushes it to the
// addressed room. The emit step is skipped whenever the insert fails so
// clients are never told about a record that does not durably exist.
func (s *NotificationService) Create(ctx context.Context, n *model.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.emit(events.Event{
		Name:    events.EvtNewNotification,
		Target:  events.TargetFor(n),
		Payload: n,
	})
	return nil
}

func (s *NotificationService) ListForUser(ctx context.Context, userID, role string, f repository.ListFilter) ([]model.Notification, error) {
	return s.repo.ListForUser(ctx, userID, role, f)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID, role string) error {
	if err := s.repo.MarkRead(ctx, id, userID, role); err != nil {
		return err
	}
	s.emit(events.Event{
		Name:    events.EvtNotificationRead,
		Target:  targetForUser(userID, role),
		Payload: events.ReadPayload{NotificationID: id, IsRead: true},
	})
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID, role string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID, role)
	if err != nil {
		return 0, err
	}
	s.emit(events.Event{
		Name:   events.EvtAllNotificationsRead,
		Target: targetForUser(userID, role),
	})
	return n, nil
}

func (s *NotificationService) Delete(ctx context.Context, id, userID, role string) error {
	return s.repo.Delete(ctx, id, userID, role)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID, role string) (int64, error) {
	return s.repo.CountUnread(ctx, userID, role)
}

func (s *NotificationService) emit(ev events.Event) {
	if err := s.emitter.Emit(ev); err != nil {
		s.logger.Warnw("emit failed", "event", ev.Name, "err", err)
	}
}

// targetForUser addresses a user's personal room. The read-state emits use
// it so other open tabs of the same user stay in sync.
func targetForUser(userID, role string) events.Target {
	switch role {
	case auth.RoleStudent:
		return events.Target{StudentID: userID}
	case auth.RoleVendor:
		return events.Target{VendorID: userID}
	default:
		return events.Target{AdminID: userID}
	}
}
