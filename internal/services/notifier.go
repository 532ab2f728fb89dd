package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/realtime"
	"github.com/coursehub/coursehub-backend/internal/repos"
	"github.com/coursehub/coursehub-backend/internal/types"
)

// Emitter pushes a message toward connected clients. Both the in-process hub
// and the redis bus satisfy it.
type Emitter interface {
	Emit(ctx context.Context, msg realtime.Message)
}

// Notifier is the engine's notification sink. Every method is fire-and-forget:
// persistence or delivery failures are logged and swallowed, never surfaced to
// the operation that triggered the notification.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, ntype, title, message, link string)
	NotifyMany(ctx context.Context, userIDs []uuid.UUID, ntype, title, message, link string)
}

type notifier struct {
	log              *logger.Logger
	notificationRepo repos.NotificationRepo
	emit             Emitter
}

func NewNotifier(baseLog *logger.Logger, notificationRepo repos.NotificationRepo, emit Emitter) Notifier {
	return &notifier{
		log:              baseLog.With("service", "Notifier"),
		notificationRepo: notificationRepo,
		emit:             emit,
	}
}

func eventForType(ntype string) realtime.Event {
	switch ntype {
	case types.NotificationCourseEnrolled:
		return realtime.EventCourseEnrolled
	case types.NotificationCourseCompleted:
		return realtime.EventCourseCompleted
	case types.NotificationCertificateIssued:
		return realtime.EventCertificateIssued
	default:
		return realtime.EventNewCourseContent
	}
}

func (n *notifier) Notify(ctx context.Context, userID uuid.UUID, ntype, title, message, link string) {
	n.NotifyMany(ctx, []uuid.UUID{userID}, ntype, title, message, link)
}

func (n *notifier) NotifyMany(ctx context.Context, userIDs []uuid.UUID, ntype, title, message, link string) {
	if n == nil || len(userIDs) == 0 {
		return
	}

	now := time.Now()
	rows := make([]*types.Notification, 0, len(userIDs))
	for _, userID := range userIDs {
		if userID == uuid.Nil {
			continue
		}
		rows = append(rows, &types.Notification{
			ID:        uuid.New(),
			UserID:    userID,
			Type:      ntype,
			Title:     title,
			Message:   message,
			Link:      link,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if len(rows) == 0 {
		return
	}

	if _, err := n.notificationRepo.Create(ctx, nil, rows); err != nil {
		n.log.Warn("failed to persist notifications", "type", ntype, "count", len(rows), "error", err)
	}

	if n.emit == nil {
		return
	}
	for _, row := range rows {
		n.emit.Emit(ctx, realtime.Message{
			Channel: row.UserID.String(),
			Event:   eventForType(ntype),
			Data: map[string]any{
				"notification": row,
			},
		})
	}
}
