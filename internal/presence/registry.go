package presence

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// Registry хранит соответствие (namespace, userID) -> connectionID в Redis.
// Реестр общий для всех инстансов сервера: при горизонтальном масштабировании
// процесс, принявший сокет, и процесс, инициировавший рассылку, могут быть
// разными. Семантика last-writer-wins, все операции best-effort: промах
// означает "сейчас доставлять некому" и никогда не является ошибкой
// для вызывающего кода.
type Registry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRegistry создает реестр присутствия. TTL защищает от осиротевших
// записей: при переподключении ключи перезаписываются и продлеваются.
func NewRegistry(client *redis.Client, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Registry{client: client, ttl: ttl}
}

func userKey(namespace string, userID uint) string {
	return fmt.Sprintf("presence:%s:user:%d", namespace, userID)
}

func connSetKey(namespace string, userID uint) string {
	return fmt.Sprintf("presence:%s:user:%d:conns", namespace, userID)
}

func connKey(namespace, connectionID string) string {
	return fmt.Sprintf("presence:%s:conn:%s", namespace, connectionID)
}

// SetUserSocket регистрирует соединение пользователя в namespace.
// Прежняя запись для этой пары перезаписывается (последний писатель побеждает),
// при этом соединение добавляется и в множество для мультиустройственной
// рассылки.
func (r *Registry) SetUserSocket(ctx context.Context, namespace string, userID uint, connectionID string) {
	pipe := r.client.Pipeline()
	pipe.Set(ctx, userKey(namespace, userID), connectionID, r.ttl)
	pipe.SAdd(ctx, connSetKey(namespace, userID), connectionID)
	pipe.Expire(ctx, connSetKey(namespace, userID), r.ttl)
	pipe.Set(ctx, connKey(namespace, connectionID), userID, r.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Presence: ошибка регистрации сокета %s пользователя %d в %s: %v",
			connectionID, userID, namespace, err)
	}
}

// GetUserSocket возвращает текущее соединение пользователя в namespace
// или пустую строку, если пользователь не в сети
func (r *Registry) GetUserSocket(ctx context.Context, namespace string, userID uint) string {
	val, err := r.client.Get(ctx, userKey(namespace, userID)).Result()
	if err == redis.Nil {
		return ""
	}
	if err != nil {
		log.Printf("Presence: ошибка чтения сокета пользователя %d в %s: %v", userID, namespace, err)
		return ""
	}
	return val
}

// GetSocketIDs возвращает все зарегистрированные соединения пользователя
// в namespace (мультиустройственная рассылка, например уведомления)
func (r *Registry) GetSocketIDs(ctx context.Context, namespace string, userID uint) []string {
	ids, err := r.client.SMembers(ctx, connSetKey(namespace, userID)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Presence: ошибка чтения соединений пользователя %d в %s: %v", userID, namespace, err)
		}
		return nil
	}
	return ids
}

// DeleteUserSocket снимает регистрацию соединения. Основная запись
// пользователя удаляется только если она все еще указывает на это
// соединение: запоздавший disconnect устаревшего сокета не должен
// выселять более новое подключение того же пользователя.
func (r *Registry) DeleteUserSocket(ctx context.Context, namespace, connectionID string) {
	userIDStr, err := r.client.Get(ctx, connKey(namespace, connectionID)).Result()
	if err == redis.Nil {
		return
	}
	if err != nil {
		log.Printf("Presence: ошибка поиска владельца сокета %s в %s: %v", connectionID, namespace, err)
		return
	}

	var userID uint
	if _, err := fmt.Sscanf(userIDStr, "%d", &userID); err != nil {
		log.Printf("Presence: некорректный владелец сокета %s: %q", connectionID, userIDStr)
		return
	}

	// Защита от устаревшего отключения: сравниваем с текущей записью
	current, err := r.client.Get(ctx, userKey(namespace, userID)).Result()
	if err == nil && current == connectionID {
		if err := r.client.Del(ctx, userKey(namespace, userID)).Err(); err != nil {
			log.Printf("Presence: ошибка удаления записи пользователя %d в %s: %v", userID, namespace, err)
		}
	}

	pipe := r.client.Pipeline()
	pipe.SRem(ctx, connSetKey(namespace, userID), connectionID)
	pipe.Del(ctx, connKey(namespace, connectionID))
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Presence: ошибка очистки сокета %s в %s: %v", connectionID, namespace, err)
	}
}
