package models

import (
	"time"
)

const (
	BookingStatusPending   Status = "PENDING"   // Ожидает подтверждения оплаты
	BookingStatusConfirmed Status = "CONFIRMED" // Оплата подтверждена
	BookingStatusCancelled Status = "CANCELLED" // Отменено
	BookingStatusExpired   Status = "EXPIRED"   // Истекло без подтверждения
)

// Booking представляет бронирование мест в рейсе
type Booking struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	TripID     uint    `json:"trip_id" gorm:"not null;index"`
	CustomerID uint    `json:"customer_id" gorm:"not null;index"`
	SeatsCount int     `json:"seats_count" gorm:"not null"`
	Price      float64 `json:"price" gorm:"not null"`
	OrderCode  string  `json:"order_code" gorm:"type:varchar(64);uniqueIndex"`
	PaymentURL string  `json:"payment_url,omitempty" gorm:"type:text"`
	Comment    string  `json:"comment" gorm:"default:''"`
	Tracked    `gorm:"embedded"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Trip       Trip      `json:"-" gorm:"foreignKey:TripID"`
	Customer   User      `json:"-" gorm:"foreignKey:CustomerID"`
}

func (b *Booking) EntityKind() string { return "booking" }
func (b *Booking) EntityID() uint     { return b.ID }

// BookingResponse представляет ответ API с информацией о бронировании
type BookingResponse struct {
	ID         uint          `json:"id"`
	TripID     uint          `json:"trip_id"`
	CustomerID uint          `json:"customer_id"`
	SeatsCount int           `json:"seats_count"`
	Price      float64       `json:"price"`
	OrderCode  string        `json:"order_code"`
	PaymentURL string        `json:"payment_url,omitempty"`
	Status     Status        `json:"status"`
	History    StatusHistory `json:"status_history"`
	ExpireAt   *time.Time    `json:"expire_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ToResponse собирает ответ API из модели
func (b *Booking) ToResponse() BookingResponse {
	return BookingResponse{
		ID:         b.ID,
		TripID:     b.TripID,
		CustomerID: b.CustomerID,
		SeatsCount: b.SeatsCount,
		Price:      b.Price,
		OrderCode:  b.OrderCode,
		PaymentURL: b.PaymentURL,
		Status:     b.Status,
		History:    b.StatusHistory,
		ExpireAt:   b.ExpireAt,
		CreatedAt:  b.CreatedAt,
	}
}
