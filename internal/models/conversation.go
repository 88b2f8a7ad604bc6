package models

import (
	"time"
)

// Conversation представляет переписку между пассажиром и водителем
type Conversation struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CustomerID uint      `json:"customer_id" gorm:"not null;index"`
	DriverID   uint      `json:"driver_id" gorm:"not null;index"`
	TripID     *uint     `json:"trip_id,omitempty" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Messages   []Message `json:"-" gorm:"foreignKey:ConversationID"`
}

// IsParticipant сообщает, участвует ли пользователь в переписке
func (c *Conversation) IsParticipant(userID uint) bool {
	return c.CustomerID == userID || c.DriverID == userID
}

// Message представляет сообщение в переписке
type Message struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ConversationID uint      `json:"conversation_id" gorm:"not null;index"`
	SenderID       uint      `json:"sender_id" gorm:"not null"`
	Content        string    `json:"content" gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at"`
}
