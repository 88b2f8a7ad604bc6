package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	ItineraryStatusPending    Status = "PENDING"     // Создан, ждет планирования
	ItineraryStatusPlanned    Status = "PLANNED"     // Остановки спланированы
	ItineraryStatusInProgress Status = "IN_PROGRESS" // Маршрут выполняется
	ItineraryStatusCompleted  Status = "COMPLETED"   // Все остановки пройдены
	ItineraryStatusCancelled  Status = "CANCELLED"   // Маршрут отменен
	ItineraryStatusExpired    Status = "EXPIRED"     // Истек без планирования
)

// Типы остановок общего маршрута
const (
	StopTypeStart   = "start"
	StopTypePickup  = "pickup"
	StopTypeDropoff = "dropoff"
)

// Stop представляет точку общего маршрута
type Stop struct {
	OrderNum  int     `json:"order_num"` // Порядковый номер в маршруте
	TripID    uint    `json:"trip_id,omitempty"`
	Type      string  `json:"type"` // start, pickup или dropoff
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	IsPass    bool    `json:"is_pass"` // Точка пройдена водителем
}

// Stops хранится в БД как JSONB колонка
type Stops []Stop

func (s Stops) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("ошибка при сериализации остановок: %w", err)
	}
	return string(data), nil
}

func (s *Stops) Scan(value interface{}) error {
	if value == nil {
		*s = Stops{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("неожиданный тип колонки остановок: %T", value)
	}

	return json.Unmarshal(data, s)
}

// SharedItinerary представляет общий маршрут, объединяющий несколько рейсов
// с упорядоченным списком остановок
type SharedItinerary struct {
	ID        uint  `json:"id" gorm:"primaryKey"`
	DriverID  uint  `json:"driver_id" gorm:"not null;index"`
	Stops     Stops `json:"stops" gorm:"type:jsonb"`
	Tracked   `gorm:"embedded"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Trips     []Trip    `json:"-" gorm:"foreignKey:ItineraryID"`
}

func (si *SharedItinerary) EntityKind() string { return "shared_itinerary" }
func (si *SharedItinerary) EntityID() uint     { return si.ID }

// AllStopsPassed сообщает, пройдены ли все остановки маршрута
func (si *SharedItinerary) AllStopsPassed() bool {
	if len(si.Stops) == 0 {
		return false
	}
	for _, stop := range si.Stops {
		if !stop.IsPass {
			return false
		}
	}
	return true
}

func (SharedItinerary) TableName() string {
	return "shared_itineraries"
}
