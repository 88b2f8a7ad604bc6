package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Status представляет статус отслеживаемой сущности
type Status string

// StatusEvent представляет одну запись в истории статусов
type StatusEvent struct {
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
	Reason    string    `json:"reason,omitempty"`
}

// StatusHistory хранится в БД как JSONB колонка
type StatusHistory []StatusEvent

// Value сериализует историю статусов в JSON для сохранения в БД
func (h StatusHistory) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("ошибка при сериализации истории статусов: %w", err)
	}
	return string(data), nil
}

// Scan десериализует историю статусов из JSON колонки
func (h *StatusHistory) Scan(value interface{}) error {
	if value == nil {
		*h = StatusHistory{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("неожиданный тип колонки истории статусов: %T", value)
	}

	return json.Unmarshal(data, h)
}

// Last возвращает последнюю запись истории или nil, если история пуста
func (h StatusHistory) Last() *StatusEvent {
	if len(h) == 0 {
		return nil
	}
	return &h[len(h)-1]
}

// Tracked содержит общие поля сущностей со статусной машиной:
// текущий статус, историю переходов, срок автоистечения и версию
// для оптимистичной блокировки. Встраивается в Booking, Trip и SharedItinerary.
type Tracked struct {
	Status        Status        `json:"status" gorm:"type:varchar(20);index"`
	StatusHistory StatusHistory `json:"status_history" gorm:"type:jsonb"`
	ExpireAt      *time.Time    `json:"expire_at,omitempty" gorm:"index"`
	Version       int           `json:"-" gorm:"not null;default:0"`
}

// TrackedState возвращает указатель на встроенное состояние
func (t *Tracked) TrackedState() *Tracked {
	return t
}

// TrackedEntity реализуется всеми сущностями, управляемыми статусной машиной
type TrackedEntity interface {
	TrackedState() *Tracked
	EntityKind() string
	EntityID() uint
}
