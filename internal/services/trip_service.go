package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/presence"
	"shuttle-backend/internal/status"
)

// TripService управляет жизненным циклом рейсов и сменами водителей
type TripService struct {
	trips     TripStore
	bookings  BookingStore
	engine    *status.Engine
	locations *LocationService
	notifier  Notifier
	emitter   Emitter
	presence  *presence.Registry

	// onItineraryTripCancel вызывается при отмене рейса, входящего
	// в общий маршрут. Подключается в main, чтобы не замыкать сервисы
	// друг на друга.
	onItineraryTripCancel func(ctx context.Context, itineraryID, tripID uint)
}

func NewTripService(
	trips TripStore,
	bookings BookingStore,
	engine *status.Engine,
	locations *LocationService,
	notifier Notifier,
	emitter Emitter,
	registry *presence.Registry,
) *TripService {
	return &TripService{
		trips:     trips,
		bookings:  bookings,
		engine:    engine,
		locations: locations,
		notifier:  notifier,
		emitter:   emitter,
		presence:  registry,
	}
}

// OnItineraryTripCancel подключает уведомление подписчиков общего
// маршрута об отмене входящего в него рейса
func (s *TripService) OnItineraryTripCancel(fn func(ctx context.Context, itineraryID, tripID uint)) {
	s.onItineraryTripCancel = fn
}

// CreateTripRequest - параметры нового рейса
type CreateTripRequest struct {
	DriverID    uint
	VehicleID   uint
	ItineraryID *uint
	FromAddress string
	ToAddress   string
	Price       float64
	SeatsCount  int
	DepartureAt time.Time
}

// CreateTrip создает рейс в статусе BOOKING с окном ожидания
// подтвержденного бронирования
func (s *TripService) CreateTrip(ctx context.Context, req CreateTripRequest) (*models.Trip, error) {
	trip := &models.Trip{
		DriverID:    req.DriverID,
		VehicleID:   req.VehicleID,
		ItineraryID: req.ItineraryID,
		FromAddress: req.FromAddress,
		ToAddress:   req.ToAddress,
		Price:       req.Price,
		SeatsCount:  req.SeatsCount,
		DepartureAt: req.DepartureAt,
	}

	if err := s.engine.Create(ctx, trip, models.TripStatusBooking, "создан рейс"); err != nil {
		return nil, err
	}

	s.emitTripUpdated(ctx, trip)
	return trip, nil
}

// UpdateStatus переводит рейс в новый статус по команде водителя.
// Пассажиры с бронированиями получают уведомление и детальное событие.
func (s *TripService) UpdateStatus(ctx context.Context, tripID, driverID uint, newStatus models.Status, reason string) (*models.Trip, error) {
	trip, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.DriverID != driverID {
		return nil, ErrForbidden
	}

	if err := s.engine.Transition(ctx, trip, newStatus, reason); err != nil {
		return nil, err
	}

	s.notifyBookedCustomers(ctx, trip, newStatus)
	s.emitTripUpdated(ctx, trip)
	return trip, nil
}

// CancelTrip отменяет рейс: все активные бронирования отменяются,
// удержанные места освобождаются, пассажиры уведомляются
func (s *TripService) CancelTrip(ctx context.Context, tripID, driverID uint, reason string) (*models.Trip, error) {
	trip, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.DriverID != driverID {
		return nil, ErrForbidden
	}

	if reason == "" {
		reason = "отменено водителем"
	}
	if err := s.engine.Transition(ctx, trip, models.TripStatusCancelled, reason); err != nil {
		return nil, err
	}

	bookings, err := s.bookings.ListByTrip(ctx, trip.ID)
	if err != nil {
		log.Printf("Рейс %d: ошибка получения бронирований при отмене: %v", trip.ID, err)
		bookings = nil
	}
	for i := range bookings {
		booking := &bookings[i]
		if booking.Status == models.BookingStatusCancelled || booking.Status == models.BookingStatusExpired {
			continue
		}
		if err := s.engine.Transition(ctx, booking, models.BookingStatusCancelled, "рейс отменен"); err != nil {
			log.Printf("Рейс %d: бронирование %d не отменено: %v", trip.ID, booking.ID, err)
			continue
		}
		if err := s.trips.AddBookedSeats(ctx, trip.ID, -booking.SeatsCount); err != nil {
			log.Printf("Рейс %d: ошибка освобождения мест бронирования %d: %v", trip.ID, booking.ID, err)
		}
		s.notifier.Notify(ctx, booking.CustomerID,
			"Рейс отменен",
			fmt.Sprintf("Рейс %s - %s отменен водителем", trip.FromAddress, trip.ToAddress),
			map[string]string{"trip_id": fmt.Sprint(trip.ID)})
	}

	if trip.ItineraryID != nil && s.onItineraryTripCancel != nil {
		s.onItineraryTripCancel(ctx, *trip.ItineraryID, trip.ID)
	}

	s.emitTripUpdated(ctx, trip)
	return trip, nil
}

// CheckIn открывает смену водителя: закрепляет транспорт за водителем
// на срок смены, после чего геопозиция начинает приниматься
func (s *TripService) CheckIn(ctx context.Context, driverID, vehicleID uint) error {
	if err := s.locations.SetDriverVehicle(ctx, driverID, vehicleID); err != nil {
		return fmt.Errorf("ошибка открытия смены: %w", err)
	}
	log.Printf("Водитель %d открыл смену на транспорте %d", driverID, vehicleID)
	s.emitter.EmitToRoom(ctx, NamespaceDriverSchedule, DriverRoom(driverID), EventScheduleUpdated,
		map[string]interface{}{"driver_id": driverID, "vehicle_id": vehicleID, "on_shift": true})
	return nil
}

// CheckOut закрывает смену водителя
func (s *TripService) CheckOut(ctx context.Context, driverID uint) error {
	if err := s.locations.ClearDriverVehicle(ctx, driverID); err != nil {
		return fmt.Errorf("ошибка закрытия смены: %w", err)
	}
	log.Printf("Водитель %d закрыл смену", driverID)
	s.emitter.EmitToRoom(ctx, NamespaceDriverSchedule, DriverRoom(driverID), EventScheduleUpdated,
		map[string]interface{}{"driver_id": driverID, "on_shift": false})
	return nil
}

func (s *TripService) notifyBookedCustomers(ctx context.Context, trip *models.Trip, newStatus models.Status) {
	var title, body string
	switch newStatus {
	case models.TripStatusPickup:
		title, body = "Водитель выехал", "Водитель направляется к точке посадки"
	case models.TripStatusInProgress:
		title, body = "Рейс начался", fmt.Sprintf("Рейс %s - %s в пути", trip.FromAddress, trip.ToAddress)
	case models.TripStatusCompleted:
		title, body = "Рейс завершен", fmt.Sprintf("Рейс %s - %s завершен", trip.FromAddress, trip.ToAddress)
	default:
		return
	}

	bookings, err := s.bookings.ListByTrip(ctx, trip.ID)
	if err != nil {
		return
	}
	for _, booking := range bookings {
		if booking.Status != models.BookingStatusConfirmed {
			continue
		}
		s.notifier.Notify(ctx, booking.CustomerID, title, body,
			map[string]string{"trip_id": fmt.Sprint(trip.ID), "status": string(newStatus)})
	}
}

// emitTripUpdated рассылает изменение рейса в комнату водителя и
// детальные события - пассажирам с бронированиями
func (s *TripService) emitTripUpdated(ctx context.Context, trip *models.Trip) {
	payload := trip.ToResponse()
	s.emitter.EmitToRoom(ctx, NamespaceTrips, DriverRoom(trip.DriverID), EventTripUpdated, []models.TripResponse{payload})

	bookings, err := s.bookings.ListByTrip(ctx, trip.ID)
	if err != nil {
		return
	}
	event := TripUpdatedDetailEvent(trip.ID)
	for _, booking := range bookings {
		connectionID := s.presence.GetUserSocket(ctx, NamespaceTrips, booking.CustomerID)
		if connectionID == "" {
			continue
		}
		s.emitter.EmitToConn(ctx, connectionID, event, payload)
	}
}
