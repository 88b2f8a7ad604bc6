package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

// WireConn - минимальный контракт соединения, который нужен хабу.
// Реализуется *websocket.Conn из gorilla.
type WireConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client представляет клиентское соединение WebSocket
type Client struct {
	ID        string
	Namespace string
	Identity  Identity

	conn    WireConn
	writeMu sync.Mutex
}

// NewClient создает клиента хаба поверх установленного соединения
func NewClient(id, namespace string, identity Identity, conn WireConn) *Client {
	return &Client{
		ID:        id,
		Namespace: namespace,
		Identity:  identity,
		conn:      conn,
	}
}

// send пишет текстовый кадр, сериализуя доступ к соединению:
// gorilla допускает только одного писателя одновременно
func (c *Client) send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Канал Redis, через который проходят все исходящие события.
// Каждый инстанс сервера подписан на него и доставляет события своим
// локальным соединениям, поэтому рассылка работает и тогда, когда сокет
// получателя держит другой процесс за балансировщиком.
const eventsChannel = "ws:events"

type envelope struct {
	TargetKind string          `json:"target_kind"` // conn или room
	Target     string          `json:"target"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
}

// Hub управляет всеми подключениями WebSocket процесса и комнатами
type Hub struct {
	redis *redis.Client

	mu          sync.RWMutex
	conns       map[string]*Client
	rooms       map[string]map[string]*Client
	roomsByConn map[string]map[string]bool
}

// NewHub создает хаб WebSocket
func NewHub(redisClient *redis.Client) *Hub {
	return &Hub{
		redis:       redisClient,
		conns:       make(map[string]*Client),
		rooms:       make(map[string]map[string]*Client),
		roomsByConn: make(map[string]map[string]bool),
	}
}

// Start запускает доставку событий из Redis
func (h *Hub) Start(ctx context.Context) {
	log.Printf("Запуск WebSocket хаба")
	go h.consume(ctx)
	log.Printf("WebSocket хаб успешно запущен")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.conns[client.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, client.ID)
	for room := range h.roomsByConn[client.ID] {
		if members, ok := h.rooms[room]; ok {
			delete(members, client.ID)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.roomsByConn, client.ID)
	h.mu.Unlock()

	client.conn.Close()
	connectionsGauge.WithLabelValues(client.Namespace).Dec()
	log.Printf("Хаб: клиент %s отключен", client.ID)
}

// Register регистрирует клиента в хабе. Регистрация синхронна:
// после возврата клиент гарантированно виден для JoinRoom
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.conns[client.ID] = client
	h.mu.Unlock()

	connectionsGauge.WithLabelValues(client.Namespace).Inc()
	log.Printf("Хаб: зарегистрирован клиент %s (namespace=%s, userID=%d)",
		client.ID, client.Namespace, client.Identity.UserID)
}

// Unregister снимает регистрацию клиента и закрывает соединение
func (h *Hub) Unregister(client *Client) {
	h.removeClient(client)
}

// roomKey ограничивает комнату ее namespace: комната driver_5 канала trips
// и комната driver_5 канала driver-schedule - разные комнаты
func roomKey(namespace, room string) string {
	return namespace + ":" + room
}

// JoinRoom добавляет соединение в комнату его namespace
func (h *Hub) JoinRoom(connectionID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.conns[connectionID]
	if !ok {
		return
	}

	key := roomKey(client.Namespace, room)
	if _, ok := h.rooms[key]; !ok {
		h.rooms[key] = make(map[string]*Client)
	}
	h.rooms[key][connectionID] = client

	if _, ok := h.roomsByConn[connectionID]; !ok {
		h.roomsByConn[connectionID] = make(map[string]bool)
	}
	h.roomsByConn[connectionID][key] = true

	log.Printf("Хаб: клиент %s вошел в комнату %s", connectionID, key)
}

// LeaveRoom удаляет соединение из комнаты его namespace
func (h *Hub) LeaveRoom(connectionID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.conns[connectionID]
	if !ok {
		return
	}

	key := roomKey(client.Namespace, room)
	if members, ok := h.rooms[key]; ok {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(h.rooms, key)
		}
	}
	delete(h.roomsByConn[connectionID], key)

	log.Printf("Хаб: клиент %s покинул комнату %s", connectionID, key)
}

// EmitToConn отправляет событие конкретному соединению.
// Публикация идет через Redis: соединение может принадлежать
// другому инстансу сервера.
func (h *Hub) EmitToConn(ctx context.Context, connectionID, event string, payload interface{}) {
	h.publish(ctx, "conn", connectionID, event, payload)
}

// EmitToRoom отправляет событие всем участникам комнаты namespace
func (h *Hub) EmitToRoom(ctx context.Context, namespace, room, event string, payload interface{}) {
	h.publish(ctx, "room", roomKey(namespace, room), event, payload)
}

func (h *Hub) publish(ctx context.Context, kind, target, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Хаб: ошибка сериализации события %s: %v", event, err)
		return
	}

	env := envelope{TargetKind: kind, Target: target, Type: event, Payload: data}
	raw, err := json.Marshal(env)
	if err != nil {
		log.Printf("Хаб: ошибка сериализации конверта %s: %v", event, err)
		return
	}

	if err := h.redis.Publish(ctx, eventsChannel, raw).Err(); err != nil {
		log.Printf("Хаб: ошибка публикации события %s: %v", event, err)
	}
}

// consume доставляет опубликованные события локальным соединениям
func (h *Hub) consume(ctx context.Context) {
	pubsub := h.redis.Subscribe(ctx, eventsChannel)
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("Хаб: поврежденный конверт события: %v", err)
				continue
			}
			h.deliver(env)
		}
	}
}

func (h *Hub) deliver(env envelope) {
	wire, err := json.Marshal(Message{Type: env.Type, Payload: env.Payload})
	if err != nil {
		log.Printf("Хаб: ошибка сборки сообщения %s: %v", env.Type, err)
		return
	}

	switch env.TargetKind {
	case "conn":
		h.mu.RLock()
		client, ok := h.conns[env.Target]
		h.mu.RUnlock()
		if !ok {
			// Соединение держит другой инстанс либо клиент уже отключился
			return
		}
		h.writeTo(client, wire)

	case "room":
		h.mu.RLock()
		members := make([]*Client, 0, len(h.rooms[env.Target]))
		for _, client := range h.rooms[env.Target] {
			members = append(members, client)
		}
		h.mu.RUnlock()

		for _, client := range members {
			h.writeTo(client, wire)
		}
	}
}

func (h *Hub) writeTo(client *Client, data []byte) {
	if err := client.send(data); err != nil {
		log.Printf("Хаб: ошибка отправки клиенту %s: %v", client.ID, err)
		// Отключаем клиента при ошибке отправки
		go h.Unregister(client)
		return
	}
	emitsTotal.WithLabelValues(client.Namespace).Inc()
}
