package models

import (
	"time"
)

// Vehicle представляет транспортное средство автопарка
type Vehicle struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	PlateNumber string    `json:"plate_number" gorm:"unique;not null;type:varchar(20)"`
	Model       string    `json:"model" gorm:"type:varchar(100)"`
	SeatsCount  int       `json:"seats_count" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VehicleLocation представляет последнее известное положение транспорта.
// Хранится только в Redis (эфемерный кэш, восстанавливается следующим
// обновлением от водителя), в БД не пишется.
type VehicleLocation struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Heading   float64   `json:"heading,omitempty"`
	Speed     float64   `json:"speed,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocationUpdate структура входящего события геопозиции от водителя
type LocationUpdate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Heading   float64 `json:"heading,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
}
