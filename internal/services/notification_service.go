package services

import (
	"context"
	"log"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/presence"
)

// NotificationService доставляет уведомления по трем каналам: запись
// в БД, push через FCM и событие в открытые сокеты пользователя.
// Каждый канал независим - сбой одного не отменяет остальные.
type NotificationService struct {
	notifications NotificationStore
	users         UserStore
	push          PushSender
	emitter       Emitter
	presence      *presence.Registry
}

func NewNotificationService(
	notifications NotificationStore,
	users UserStore,
	push PushSender,
	emitter Emitter,
	registry *presence.Registry,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		push:          push,
		emitter:       emitter,
		presence:      registry,
	}
}

// Notify создает уведомление и рассылает его по всем каналам
func (s *NotificationService) Notify(ctx context.Context, userID uint, title, body string, data map[string]string) {
	notification := &models.Notification{
		UserID: userID,
		Title:  title,
		Body:   body,
		Data:   models.NotificationData(data),
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		log.Printf("Пользователь %d: ошибка сохранения уведомления: %v", userID, err)
		return
	}

	if user, err := s.users.FindByID(ctx, userID); err == nil && user.FCMToken != "" {
		if err := s.push.SendPush(ctx, user.FCMToken, title, body, data); err != nil {
			log.Printf("Пользователь %d: ошибка отправки push: %v", userID, err)
		}
	}

	s.emitToSockets(ctx, userID, notification)
}

// List возвращает уведомления пользователя, новые первыми
func (s *NotificationService) List(ctx context.Context, userID uint) ([]models.Notification, error) {
	return s.notifications.ListByUser(ctx, userID)
}

// MarkRead помечает уведомление прочитанным и рассылает в сокеты
// обновленное уведомление вместе с новым счетчиком непрочитанных
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID uint) (*models.Notification, error) {
	notification, err := s.notifications.MarkRead(ctx, notificationID, userID)
	if err != nil {
		return nil, err
	}

	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		log.Printf("Пользователь %d: ошибка подсчета непрочитанных: %v", userID, err)
		unread = 0
	}

	event := NotificationUpdatedEvent(notification.ID)
	for _, connectionID := range s.presence.GetSocketIDs(ctx, NamespaceNotifications, userID) {
		s.emitter.EmitToConn(ctx, connectionID, event, notification)
		s.emitter.EmitToConn(ctx, connectionID, EventUnreadCount, map[string]interface{}{"count": unread})
	}

	return notification, nil
}

// emitToSockets рассылает новое уведомление и счетчик непрочитанных
// во все открытые сокеты пользователя в пространстве уведомлений
func (s *NotificationService) emitToSockets(ctx context.Context, userID uint, notification *models.Notification) {
	connections := s.presence.GetSocketIDs(ctx, NamespaceNotifications, userID)
	if len(connections) == 0 {
		return
	}

	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		log.Printf("Пользователь %d: ошибка подсчета непрочитанных: %v", userID, err)
		unread = 0
	}

	for _, connectionID := range connections {
		s.emitter.EmitToConn(ctx, connectionID, EventNewNotification, notification)
		s.emitter.EmitToConn(ctx, connectionID, EventUnreadCount, map[string]interface{}{"count": unread})
	}
}
