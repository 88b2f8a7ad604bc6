package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/presence"
	"shuttle-backend/internal/status"
)

var (
	// ErrStopNotFound возвращается при отметке несуществующей остановки
	ErrStopNotFound = errors.New("остановка не найдена в маршруте")
	// ErrEmptyStops возвращается при планировании маршрута без остановок
	ErrEmptyStops = errors.New("маршрут должен содержать хотя бы одну остановку")
)

// ItineraryService управляет общими маршрутами: планирование остановок,
// отметка прохождения точек и трансляция изменений подписчикам
type ItineraryService struct {
	itineraries ItineraryStore
	trips       TripStore
	bookings    BookingStore
	engine      *status.Engine
	emitter     Emitter
	presence    *presence.Registry

	// cancelTrip отменяет рейс вместе с его бронированиями.
	// Подключается в main, чтобы не замыкать сервисы друг на друга.
	cancelTrip func(ctx context.Context, tripID, driverID uint, reason string) (*models.Trip, error)
}

func NewItineraryService(
	itineraries ItineraryStore,
	trips TripStore,
	bookings BookingStore,
	engine *status.Engine,
	emitter Emitter,
	registry *presence.Registry,
) *ItineraryService {
	return &ItineraryService{
		itineraries: itineraries,
		trips:       trips,
		bookings:    bookings,
		engine:      engine,
		emitter:     emitter,
		presence:    registry,
	}
}

// OnCancelTrip подключает каскадную отмену рейсов маршрута
func (s *ItineraryService) OnCancelTrip(fn func(ctx context.Context, tripID, driverID uint, reason string) (*models.Trip, error)) {
	s.cancelTrip = fn
}

// itineraryEventPayload - формат трансляции изменения общего маршрута
type itineraryEventPayload struct {
	Message                 string                  `json:"message"`
	SharedItinerary         *models.SharedItinerary `json:"sharedItinerary"`
	IsTripInItineraryCancel bool                    `json:"isTripInItineraryCancel"`
}

// Create создает общий маршрут в статусе PENDING с окном ожидания
// планирования
func (s *ItineraryService) Create(ctx context.Context, driverID uint) (*models.SharedItinerary, error) {
	itinerary := &models.SharedItinerary{DriverID: driverID}
	if err := s.engine.Create(ctx, itinerary, models.ItineraryStatusPending, "создан общий маршрут"); err != nil {
		return nil, err
	}
	return itinerary, nil
}

// Plan сохраняет упорядоченный список остановок и переводит маршрут
// в PLANNED, снимая окно истечения
func (s *ItineraryService) Plan(ctx context.Context, itineraryID, driverID uint, stops models.Stops) (*models.SharedItinerary, error) {
	itinerary, err := s.itineraries.FindByID(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	if itinerary.DriverID != driverID {
		return nil, ErrForbidden
	}
	if len(stops) == 0 {
		return nil, ErrEmptyStops
	}

	for i := range stops {
		stops[i].OrderNum = i + 1
		stops[i].IsPass = false
	}
	itinerary.Stops = stops
	if err := s.itineraries.SaveStops(ctx, itinerary); err != nil {
		return nil, err
	}

	if err := s.engine.Transition(ctx, itinerary, models.ItineraryStatusPlanned, "остановки спланированы"); err != nil {
		return nil, err
	}

	s.broadcast(ctx, itinerary, "Маршрут спланирован", false)
	return itinerary, nil
}

// PassStop отмечает остановку пройденной. Прохождение первой точки
// переводит маршрут в IN_PROGRESS, прохождение всех точек - в COMPLETED.
func (s *ItineraryService) PassStop(ctx context.Context, itineraryID, driverID uint, orderNum int) (*models.SharedItinerary, error) {
	itinerary, err := s.itineraries.FindByID(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	if itinerary.DriverID != driverID {
		return nil, ErrForbidden
	}

	found := false
	for i := range itinerary.Stops {
		if itinerary.Stops[i].OrderNum == orderNum {
			itinerary.Stops[i].IsPass = true
			found = true
			break
		}
	}
	if !found {
		return nil, ErrStopNotFound
	}

	if err := s.itineraries.SaveStops(ctx, itinerary); err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Точка %d пройдена", orderNum)
	switch {
	case itinerary.AllStopsPassed():
		if err := s.engine.Transition(ctx, itinerary, models.ItineraryStatusCompleted, "все остановки пройдены"); err != nil {
			return nil, err
		}
		message = "Маршрут завершен"
	case itinerary.Status == models.ItineraryStatusPlanned:
		if err := s.engine.Transition(ctx, itinerary, models.ItineraryStatusInProgress, "пройдена первая остановка"); err != nil {
			return nil, err
		}
		message = "Маршрут начат"
	}

	s.broadcast(ctx, itinerary, message, false)
	return itinerary, nil
}

// PassStartPoint отмечает пройденной первую остановку маршрута
func (s *ItineraryService) PassStartPoint(ctx context.Context, itineraryID, driverID uint) (*models.SharedItinerary, error) {
	return s.passBoundary(ctx, itineraryID, driverID, true)
}

// PassEndPoint отмечает пройденной последнюю остановку маршрута
func (s *ItineraryService) PassEndPoint(ctx context.Context, itineraryID, driverID uint) (*models.SharedItinerary, error) {
	return s.passBoundary(ctx, itineraryID, driverID, false)
}

func (s *ItineraryService) passBoundary(ctx context.Context, itineraryID, driverID uint, start bool) (*models.SharedItinerary, error) {
	itinerary, err := s.itineraries.FindByID(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	if len(itinerary.Stops) == 0 {
		return nil, ErrStopNotFound
	}

	orderNum := itinerary.Stops[0].OrderNum
	for _, stop := range itinerary.Stops {
		if start && stop.OrderNum < orderNum {
			orderNum = stop.OrderNum
		}
		if !start && stop.OrderNum > orderNum {
			orderNum = stop.OrderNum
		}
	}
	return s.PassStop(ctx, itineraryID, driverID, orderNum)
}

// Cancel отменяет общий маршрут вместе с его незавершенными рейсами
func (s *ItineraryService) Cancel(ctx context.Context, itineraryID, driverID uint, reason string) (*models.SharedItinerary, error) {
	itinerary, err := s.itineraries.FindByID(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	if itinerary.DriverID != driverID {
		return nil, ErrForbidden
	}

	if reason == "" {
		reason = "маршрут отменен водителем"
	}
	if err := s.engine.Transition(ctx, itinerary, models.ItineraryStatusCancelled, reason); err != nil {
		return nil, err
	}

	trips, err := s.trips.ListByItinerary(ctx, itinerary.ID)
	if err != nil {
		log.Printf("Маршрут %d: ошибка получения рейсов при отмене: %v", itinerary.ID, err)
		trips = nil
	}
	for i := range trips {
		trip := &trips[i]
		if trip.Status == models.TripStatusCancelled || trip.Status == models.TripStatusCompleted {
			continue
		}
		if s.cancelTrip != nil {
			if _, err := s.cancelTrip(ctx, trip.ID, driverID, "общий маршрут отменен"); err != nil {
				log.Printf("Маршрут %d: рейс %d не отменен: %v", itinerary.ID, trip.ID, err)
			}
			continue
		}
		if err := s.engine.Transition(ctx, trip, models.TripStatusCancelled, "общий маршрут отменен"); err != nil {
			log.Printf("Маршрут %d: рейс %d не отменен: %v", itinerary.ID, trip.ID, err)
		}
	}

	s.broadcast(ctx, itinerary, "Маршрут отменен", false)
	return itinerary, nil
}

// NotifyTripCancelled транслирует подписчикам маршрута отмену одного
// из входящих в него рейсов
func (s *ItineraryService) NotifyTripCancelled(ctx context.Context, itineraryID, tripID uint) {
	itinerary, err := s.itineraries.FindByID(ctx, itineraryID)
	if err != nil {
		log.Printf("Маршрут %d: не найден при отмене рейса %d: %v", itineraryID, tripID, err)
		return
	}
	s.broadcast(ctx, itinerary, fmt.Sprintf("Рейс %d маршрута отменен", tripID), true)
}

// broadcast транслирует текущее состояние маршрута всем его участникам
// в пространстве share-itinerary: в комнату водителя и напрямую в сокеты
// пассажиров с бронированиями на рейсах маршрута
func (s *ItineraryService) broadcast(ctx context.Context, itinerary *models.SharedItinerary, message string, tripCancelled bool) {
	event := UpdatedItineraryEvent(itinerary.ID)
	payload := itineraryEventPayload{
		Message:                 message,
		SharedItinerary:         itinerary,
		IsTripInItineraryCancel: tripCancelled,
	}

	s.emitter.EmitToRoom(ctx, NamespaceShareItinerary, DriverRoom(itinerary.DriverID), event, payload)

	trips, err := s.trips.ListByItinerary(ctx, itinerary.ID)
	if err != nil {
		log.Printf("Маршрут %d: ошибка получения рейсов для трансляции: %v", itinerary.ID, err)
		return
	}

	notified := make(map[uint]bool)
	for i := range trips {
		bookings, err := s.bookings.ListByTrip(ctx, trips[i].ID)
		if err != nil {
			log.Printf("Маршрут %d: ошибка получения бронирований рейса %d: %v", itinerary.ID, trips[i].ID, err)
			continue
		}
		for _, booking := range bookings {
			if booking.Status == models.BookingStatusCancelled || notified[booking.CustomerID] {
				continue
			}
			notified[booking.CustomerID] = true

			connectionID := s.presence.GetUserSocket(ctx, NamespaceShareItinerary, booking.CustomerID)
			if connectionID == "" {
				continue
			}
			s.emitter.EmitToConn(ctx, connectionID, event, payload)
		}
	}
}
