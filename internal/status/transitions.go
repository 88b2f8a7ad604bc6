package status

import (
	"os"
	"strconv"
	"time"

	"shuttle-backend/internal/models"
)

// Таблицы переходов статусных машин. Конечные статусы не имеют
// исходящих переходов и в таблицах отсутствуют.

// BookingTransitions - статусная машина бронирования
var BookingTransitions = map[models.Status][]models.Status{
	models.BookingStatusPending: {
		models.BookingStatusConfirmed,
		models.BookingStatusCancelled,
		models.BookingStatusExpired,
	},
}

// TripTransitions - статусная машина рейса
var TripTransitions = map[models.Status][]models.Status{
	models.TripStatusBooking: {
		models.TripStatusConfirmed,
		models.TripStatusCancelled,
	},
	models.TripStatusConfirmed: {
		models.TripStatusPickup,
		models.TripStatusCancelled,
	},
	models.TripStatusPickup: {
		models.TripStatusInProgress,
		models.TripStatusCancelled,
		models.TripStatusDroppedOff,
	},
	models.TripStatusInProgress: {
		models.TripStatusCompleted,
		models.TripStatusCancelled,
		models.TripStatusDroppedOff,
	},
}

// ItineraryTransitions - статусная машина общего маршрута
var ItineraryTransitions = map[models.Status][]models.Status{
	models.ItineraryStatusPending: {
		models.ItineraryStatusPlanned,
		models.ItineraryStatusCancelled,
		models.ItineraryStatusExpired,
	},
	models.ItineraryStatusPlanned: {
		models.ItineraryStatusInProgress,
		models.ItineraryStatusCancelled,
	},
	models.ItineraryStatusInProgress: {
		models.ItineraryStatusCompleted,
		models.ItineraryStatusCancelled,
	},
}

func graceFromEnv(key string, fallback time.Duration) time.Duration {
	if val, err := strconv.Atoi(os.Getenv(key)); err == nil && val > 0 {
		return time.Duration(val) * time.Second
	}
	return fallback
}

// DefaultRules собирает правила всех сущностей. Окна ожидания
// настраиваются через переменные окружения *_GRACE_SECONDS.
func DefaultRules() map[string]Rules {
	return map[string]Rules{
		"booking": {
			Transitions: BookingTransitions,
			Confirm:     models.BookingStatusConfirmed,
			Grace:       graceFromEnv("BOOKING_GRACE_SECONDS", 120*time.Second),
		},
		"trip": {
			Transitions: TripTransitions,
			Confirm:     models.TripStatusConfirmed,
			Grace:       graceFromEnv("TRIP_GRACE_SECONDS", 300*time.Second),
		},
		"shared_itinerary": {
			Transitions: ItineraryTransitions,
			Confirm:     models.ItineraryStatusPlanned,
			Grace:       graceFromEnv("ITINERARY_GRACE_SECONDS", 120*time.Second),
		},
	}
}
