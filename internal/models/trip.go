package models

import (
	"time"
)

const (
	TripStatusBooking    Status = "BOOKING"     // Открыт для бронирования, ждет подтверждения
	TripStatusConfirmed  Status = "CONFIRMED"   // Подтвержден, назначен водитель
	TripStatusPickup     Status = "PICKUP"      // Водитель забирает пассажиров
	TripStatusInProgress Status = "IN_PROGRESS" // Рейс в пути
	TripStatusCompleted  Status = "COMPLETED"   // Рейс завершен
	TripStatusCancelled  Status = "CANCELLED"   // Рейс отменен
	TripStatusDroppedOff Status = "DROPPED_OFF" // Пассажир высажен досрочно
)

// Trip представляет рейс, выполняемый водителем на закрепленном транспорте
type Trip struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	DriverID    uint    `json:"driver_id" gorm:"not null;index"`
	VehicleID   uint    `json:"vehicle_id" gorm:"not null;index"`
	ItineraryID *uint   `json:"itinerary_id,omitempty" gorm:"index"`
	FromAddress string  `json:"from_address" gorm:"not null"`
	ToAddress   string  `json:"to_address" gorm:"not null"`
	Price       float64 `json:"price" gorm:"not null"`
	SeatsCount  int     `json:"seats_count" gorm:"not null"`
	BookedSeats int     `json:"booked_seats" gorm:"default:0"`
	Tracked     `gorm:"embedded"`
	DepartureAt time.Time `json:"departure_at" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Driver      User      `json:"-" gorm:"foreignKey:DriverID"`
	Vehicle     Vehicle   `json:"-" gorm:"foreignKey:VehicleID"`
	Bookings    []Booking `json:"-" gorm:"foreignKey:TripID"`
}

func (t *Trip) EntityKind() string { return "trip" }
func (t *Trip) EntityID() uint     { return t.ID }

// AvailableSeats возвращает количество свободных мест
func (t *Trip) AvailableSeats() int {
	return t.SeatsCount - t.BookedSeats
}

// TripResponse представляет ответ API с информацией о рейсе
type TripResponse struct {
	ID          uint       `json:"id"`
	DriverID    uint       `json:"driver_id"`
	VehicleID   uint       `json:"vehicle_id"`
	ItineraryID *uint      `json:"itinerary_id,omitempty"`
	FromAddress string     `json:"from_address"`
	ToAddress   string     `json:"to_address"`
	Price       float64    `json:"price"`
	SeatsCount  int        `json:"seats_count"`
	BookedSeats int        `json:"booked_seats"`
	Status      Status     `json:"status"`
	ExpireAt    *time.Time `json:"expire_at,omitempty"`
	DepartureAt time.Time  `json:"departure_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (t *Trip) ToResponse() TripResponse {
	return TripResponse{
		ID:          t.ID,
		DriverID:    t.DriverID,
		VehicleID:   t.VehicleID,
		ItineraryID: t.ItineraryID,
		FromAddress: t.FromAddress,
		ToAddress:   t.ToAddress,
		Price:       t.Price,
		SeatsCount:  t.SeatsCount,
		BookedSeats: t.BookedSeats,
		Status:      t.Status,
		ExpireAt:    t.ExpireAt,
		DepartureAt: t.DepartureAt,
		CreatedAt:   t.CreatedAt,
	}
}
