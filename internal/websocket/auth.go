package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/utils"
)

// ErrUnauthorized возвращается шлюзом при отказе в подключении
var ErrUnauthorized = errors.New("неавторизованное подключение")

// IdentityKind - вариант личности подключившегося клиента
type IdentityKind int

const (
	IdentityCustomer IdentityKind = iota
	IdentityDriver
	IdentityAdmin
)

// Identity - личность, прикрепляемая к соединению после прохождения шлюза.
// Комната выбирается сопоставлением варианта, а не сравнением строк роли.
type Identity struct {
	Kind   IdentityKind
	UserID uint
}

// Room возвращает ролевую комнату клиента
func (id Identity) Room() string {
	switch id.Kind {
	case IdentityDriver:
		return fmt.Sprintf("driver_%d", id.UserID)
	default:
		return fmt.Sprintf("customer_%d", id.UserID)
	}
}

// Session - запись сессии в Redis, создаваемая при входе
// и проверяемая шлюзом на каждом рукопожатии
type Session struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// SessionKey - ключ записи сессии по идентификатору клиента
func SessionKey(clientID string) string {
	return "session:" + clientID
}

// Gate проверяет подключения перед допуском в namespace: подпись и срок
// JWT плюс живость сессионной записи для заявленного client id. Проверка
// выполняется для каждого namespace отдельно: валидная сессия допускает
// только тот канал, к которому идет подключение.
type Gate struct {
	redis *redis.Client
}

func NewGate(redisClient *redis.Client) *Gate {
	return &Gate{redis: redisClient}
}

// Authorize пропускает или отклоняет рукопожатие. При отказе состояние
// не изменяется - только отказ в допуске.
func (g *Gate) Authorize(ctx context.Context, namespace, token, clientID string) (Identity, error) {
	if token == "" || clientID == "" {
		return Identity{}, ErrUnauthorized
	}

	claims, err := utils.ValidateToken(token)
	if err != nil {
		log.Printf("Шлюз %s: недействительный токен: %v", namespace, err)
		return Identity{}, ErrUnauthorized
	}

	val, err := g.redis.Get(ctx, SessionKey(clientID)).Result()
	if err == redis.Nil {
		log.Printf("Шлюз %s: сессия клиента %s не найдена", namespace, clientID)
		return Identity{}, ErrUnauthorized
	}
	if err != nil {
		log.Printf("Шлюз %s: ошибка чтения сессии клиента %s: %v", namespace, clientID, err)
		return Identity{}, ErrUnauthorized
	}

	var session Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		log.Printf("Шлюз %s: поврежденная сессия клиента %s: %v", namespace, clientID, err)
		return Identity{}, ErrUnauthorized
	}

	if !session.Active || session.UserID != claims.UserID {
		log.Printf("Шлюз %s: сессия клиента %s неактивна или не принадлежит пользователю %d",
			namespace, clientID, claims.UserID)
		return Identity{}, ErrUnauthorized
	}

	identity := Identity{UserID: claims.UserID}
	switch session.Role {
	case models.RoleDriver:
		identity.Kind = IdentityDriver
	case models.RoleAdmin:
		identity.Kind = IdentityAdmin
	default:
		identity.Kind = IdentityCustomer
	}

	return identity, nil
}
