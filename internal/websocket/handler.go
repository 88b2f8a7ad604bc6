package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/presence"
	"shuttle-backend/internal/services"
)

// HandlerDeps - зависимости обработчика подключений
type HandlerDeps struct {
	Hub       *Hub
	Gate      *Gate
	Presence  *presence.Registry
	Tracking  *services.TrackingService
	Locations *services.LocationService
	Chat      *services.ChatService
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Разрешаем подключения с любых источников
	},
}

// bearerToken достает токен из заголовка Authorization или параметра token
// (мобильные клиенты не всегда могут выставить заголовок на рукопожатии)
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if parts := strings.Split(header, " "); len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return c.Query("token")
}

// Handler обрабатывает подключения WebSocket ко всем namespace
func Handler(deps *HandlerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		namespace := c.Param("namespace")
		if !Namespaces[namespace] {
			c.JSON(http.StatusNotFound, gin.H{"error": "Неизвестный канал"})
			return
		}

		// Проверяем, что это действительно запрос на установление WebSocket соединения
		if c.GetHeader("Upgrade") != "websocket" {
			c.String(http.StatusBadRequest, "Требуется WebSocket соединение")
			return
		}

		token := bearerToken(c)
		clientID := c.Query("client_id")

		// Шлюз аутентификации: без допуска не выполняется ни один обработчик канала
		identity, err := deps.Gate.Authorize(c.Request.Context(), namespace, token, clientID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Недействительный токен или сессия"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("Ошибка обновления соединения до WebSocket (%s): %v", namespace, err)
			return
		}

		client := NewClient(uuid.New().String(), namespace, identity, conn)
		deps.Hub.Register(client)

		// Контекст соединения живет дольше HTTP запроса рукопожатия
		ctx := context.Background()

		// Регистрируем присутствие и входим в ролевую комнату
		deps.Presence.SetUserSocket(ctx, namespace, identity.UserID, client.ID)
		deps.Hub.JoinRoom(client.ID, identity.Room())

		if namespace == NamespaceConversations {
			deps.Chat.SendConversationsList(ctx, client.ID, identity.UserID)
		}

		log.Printf("WebSocket %s: подключен пользователь %d (conn=%s)", namespace, identity.UserID, client.ID)

		go readLoop(ctx, deps, client, conn)
	}
}

// readLoop обрабатывает входящие сообщения одного соединения.
// События обрабатываются в порядке поступления; гарантий порядка между
// разными соединениями нет.
func readLoop(ctx context.Context, deps *HandlerDeps, client *Client, conn *websocket.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Перехвачена паника в обработчике сообщений %s: %v", client.ID, r)
		}
		deps.Presence.DeleteUserSocket(ctx, client.Namespace, client.ID)
		deps.Hub.Unregister(client)
	}()

	for {
		// Таймаут чтения защищает от зависших соединений
		conn.SetReadDeadline(time.Now().Add(1 * time.Hour))

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Ошибка чтения сообщения от %s: %v", client.ID, err)
			}
			return
		}

		var msg InboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("Поврежденное сообщение от клиента %s: %v", client.ID, err)
			continue
		}

		dispatch(ctx, deps, client, msg)
	}
}

func dispatch(ctx context.Context, deps *HandlerDeps, client *Client, msg InboundMessage) {
	switch msg.Type {
	case "PING", "ping":
		pong, _ := json.Marshal(Message{
			Type:    "PONG",
			Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
		})
		if err := client.send(pong); err != nil {
			log.Printf("Ошибка отправки PONG клиенту %s: %v", client.ID, err)
		}
		return
	}

	switch client.Namespace {
	case NamespaceTracking:
		dispatchTracking(ctx, deps, client, msg)
	case NamespaceConversations:
		dispatchConversations(ctx, deps, client, msg)
	default:
		// Остальные каналы используются только сервером для рассылки
		log.Printf("Канал %s: неожиданное событие %q от клиента %s", client.Namespace, msg.Type, client.ID)
	}
}

func dispatchTracking(ctx context.Context, deps *HandlerDeps, client *Client, msg InboundMessage) {
	switch msg.Type {
	case EventDriverLocationUpdate:
		if client.Identity.Kind != IdentityDriver {
			log.Printf("Канал tracking: геопозицию прислал не водитель (userID=%d)", client.Identity.UserID)
			return
		}
		var update models.LocationUpdate
		if err := json.Unmarshal(msg.Payload, &update); err != nil {
			log.Printf("Канал tracking: поврежденная геопозиция от %s: %v", client.ID, err)
			return
		}
		deps.Tracking.HandleDriverLocation(ctx, client.Identity.UserID, update)

	case EventTrackVehicle, EventUntrackVehicle:
		var payload struct {
			VehicleID uint `json:"vehicle_id"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.VehicleID == 0 {
			log.Printf("Канал tracking: некорректный vehicle_id от %s", client.ID)
			return
		}
		if msg.Type == EventTrackVehicle {
			deps.Locations.Subscribe(ctx, payload.VehicleID, client.Identity.UserID)
		} else {
			deps.Locations.Unsubscribe(ctx, payload.VehicleID, client.Identity.UserID)
		}

	default:
		log.Printf("Канал tracking: неизвестное событие %q от %s", msg.Type, client.ID)
	}
}

func dispatchConversations(ctx context.Context, deps *HandlerDeps, client *Client, msg InboundMessage) {
	switch msg.Type {
	case EventJoinConversation:
		var payload struct {
			ConversationID uint `json:"conversationId"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.ConversationID == 0 {
			return
		}
		if err := deps.Chat.Join(ctx, client.ID, client.Identity.UserID, payload.ConversationID); err != nil {
			log.Printf("Канал conversations: отказ входа в переписку %d пользователю %d: %v",
				payload.ConversationID, client.Identity.UserID, err)
		}

	case EventLeaveConversation:
		var payload struct {
			ConversationID uint `json:"conversationId"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.ConversationID == 0 {
			return
		}
		deps.Chat.Leave(client.ID, payload.ConversationID)

	case EventSendMessage:
		var payload struct {
			ConversationID uint   `json:"conversationId"`
			Content        string `json:"content"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.ConversationID == 0 {
			return
		}
		if _, err := deps.Chat.SendMessage(ctx, client.Identity.UserID, payload.ConversationID, payload.Content); err != nil {
			log.Printf("Канал conversations: сообщение в переписку %d не отправлено: %v",
				payload.ConversationID, err)
		}

	default:
		log.Printf("Канал conversations: неизвестное событие %q от %s", msg.Type, client.ID)
	}
}
