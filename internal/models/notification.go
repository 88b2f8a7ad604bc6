package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// NotificationData хранит произвольные данные уведомления как JSONB
type NotificationData map[string]string

func (d NotificationData) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("ошибка при сериализации данных уведомления: %w", err)
	}
	return string(data), nil
}

func (d *NotificationData) Scan(value interface{}) error {
	if value == nil {
		*d = NotificationData{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("неожиданный тип колонки данных уведомления: %T", value)
	}

	return json.Unmarshal(data, d)
}

// Notification представляет уведомление пользователя
type Notification struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	UserID    uint             `json:"user_id" gorm:"not null;index"`
	Title     string           `json:"title" gorm:"not null"`
	Body      string           `json:"body" gorm:"type:text"`
	Data      NotificationData `json:"data" gorm:"type:jsonb"`
	IsRead    bool             `json:"is_read" gorm:"default:false;index"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
