package websocket

import (
	"encoding/json"
)

// Логические namespace каналов реального времени. Каждый namespace
// самостоятельно пропускает подключение через шлюз аутентификации.
const (
	NamespaceTracking       = "tracking"
	NamespaceNotifications  = "notifications"
	NamespaceTrips          = "trips"
	NamespaceDriverSchedule = "driver-schedule"
	NamespaceShareItinerary = "share-itinerary"
	NamespaceConversations  = "conversations"
)

// Namespaces - допустимые значения параметра маршрута /ws/:namespace
var Namespaces = map[string]bool{
	NamespaceTracking:       true,
	NamespaceNotifications:  true,
	NamespaceTrips:          true,
	NamespaceDriverSchedule: true,
	NamespaceShareItinerary: true,
	NamespaceConversations:  true,
}

// Входящие события (контракт клиента, имена сохранены как есть)
const (
	EventDriverLocationUpdate = "driver_location_update"
	EventTrackVehicle         = "track_vehicle"
	EventUntrackVehicle       = "untrack_vehicle"
	EventJoinConversation     = "joinConversation"
	EventLeaveConversation    = "leaveConversation"
	EventSendMessage          = "sendMessage"
)

// Message представляет формат сообщения WebSocket
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// InboundMessage используется при разборе сообщений от клиента:
// payload остается сырым JSON и разбирается обработчиком события
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
