package services

import (
	"context"
	"fmt"
)

// Имена namespace каналов, в которые сервисы рассылают события.
// Значения совпадают с маршрутами /ws/:namespace.
const (
	NamespaceTracking       = "tracking"
	NamespaceNotifications  = "notifications"
	NamespaceTrips          = "trips"
	NamespaceDriverSchedule = "driver-schedule"
	NamespaceShareItinerary = "share-itinerary"
	NamespaceConversations  = "conversations"
)

// Исходящие события (контракт клиента, имена сохранены как есть)
const (
	EventTripUpdated       = "trip_updated"
	EventNewNotification   = "new_notification"
	EventUnreadCount       = "unread_notification_count"
	EventNewMessage        = "newMessage"
	EventNewConversation   = "newConversation"
	EventConversationsList = "conversationsList"
	EventScheduleUpdated   = "schedule_updated"
)

// UpdateLocationEvent - событие геопозиции конкретного транспорта
func UpdateLocationEvent(vehicleID uint) string {
	return fmt.Sprintf("update_location_%d", vehicleID)
}

// TripUpdatedDetailEvent - детальное событие конкретного рейса
func TripUpdatedDetailEvent(tripID uint) string {
	return fmt.Sprintf("trip_updated_detail_%d", tripID)
}

// NotificationUpdatedEvent - событие изменения конкретного уведомления
func NotificationUpdatedEvent(notificationID uint) string {
	return fmt.Sprintf("notification_updated_%d", notificationID)
}

// UpdatedItineraryEvent - событие изменения общего маршрута
func UpdatedItineraryEvent(itineraryID uint) string {
	return fmt.Sprintf("updated_shared_itinerary_%d", itineraryID)
}

// DriverRoom и CustomerRoom - ролевые комнаты, в которые клиент
// попадает после рукопожатия
func DriverRoom(driverID uint) string {
	return fmt.Sprintf("driver_%d", driverID)
}

func CustomerRoom(customerID uint) string {
	return fmt.Sprintf("customer_%d", customerID)
}

// ConversationRoom - комната одной переписки
func ConversationRoom(conversationID uint) string {
	return fmt.Sprintf("conversation_%d", conversationID)
}

// Emitter рассылает события в соединения WebSocket. Реализуется хабом.
// Рассылка best-effort: неудачная доставка никогда не откатывает уже
// сохраненное изменение состояния.
type Emitter interface {
	EmitToConn(ctx context.Context, connectionID, event string, payload interface{})
	EmitToRoom(ctx context.Context, namespace, room, event string, payload interface{})
}

// RoomManager управляет членством соединений в комнатах. Реализуется хабом.
type RoomManager interface {
	JoinRoom(connectionID, room string)
	LeaveRoom(connectionID, room string)
}

// PaymentClient - узкий интерфейс платежного провайдера
type PaymentClient interface {
	CreatePaymentLink(ctx context.Context, orderCode string, amount float64, description string) (string, error)
}

// PushSender - узкий интерфейс отправителя push-уведомлений
type PushSender interface {
	SendPush(ctx context.Context, token, title, body string, data map[string]string) error
}

// Notifier доставляет уведомление пользователю по всем каналам
// (БД, push, сокеты). Реализуется NotificationService.
type Notifier interface {
	Notify(ctx context.Context, userID uint, title, body string, data map[string]string)
}
