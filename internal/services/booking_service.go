package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/presence"
	"shuttle-backend/internal/status"
)

var (
	// ErrTripNotBookable возвращается при попытке бронирования недоступного рейса
	ErrTripNotBookable = errors.New("рейс недоступен для бронирования")
	// ErrNotEnoughSeats возвращается при нехватке свободных мест
	ErrNotEnoughSeats = errors.New("недостаточно свободных мест")
	// ErrForbidden возвращается при операции над чужой записью
	ErrForbidden = errors.New("операция недоступна этому пользователю")
)

// BookingService оркестрирует жизненный цикл бронирования: создание
// с окном ожидания оплаты, обработку платежных коллбэков и рассылку
// изменений заинтересованным сокетам
type BookingService struct {
	bookings BookingStore
	trips    TripStore
	engine   *status.Engine
	payments PaymentClient
	notifier Notifier
	emitter  Emitter
	presence *presence.Registry
}

func NewBookingService(
	bookings BookingStore,
	trips TripStore,
	engine *status.Engine,
	payments PaymentClient,
	notifier Notifier,
	emitter Emitter,
	registry *presence.Registry,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		trips:    trips,
		engine:   engine,
		payments: payments,
		notifier: notifier,
		emitter:  emitter,
		presence: registry,
	}
}

// CreateBookingRequest - параметры нового бронирования
type CreateBookingRequest struct {
	TripID     uint
	CustomerID uint
	SeatsCount int
	Comment    string
}

// CreateBooking создает бронирование в статусе PENDING с окном ожидания
// оплаты. Места удерживаются сразу и освобождаются при отмене или
// истечении. Платежная ссылка создается по коду заказа.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	trip, err := s.trips.FindByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	if trip.Status != models.TripStatusBooking && trip.Status != models.TripStatusConfirmed {
		return nil, ErrTripNotBookable
	}
	if trip.DriverID == req.CustomerID {
		return nil, fmt.Errorf("%w: нельзя бронировать собственный рейс", ErrTripNotBookable)
	}
	if req.SeatsCount <= 0 || req.SeatsCount > trip.AvailableSeats() {
		return nil, ErrNotEnoughSeats
	}

	booking := &models.Booking{
		TripID:     trip.ID,
		CustomerID: req.CustomerID,
		SeatsCount: req.SeatsCount,
		Price:      trip.Price * float64(req.SeatsCount),
		OrderCode:  uuid.New().String(),
		Comment:    req.Comment,
	}

	if err := s.engine.Create(ctx, booking, models.BookingStatusPending, "создано бронирование"); err != nil {
		return nil, err
	}

	// Удерживаем места до подтверждения, отмены или истечения
	if err := s.trips.AddBookedSeats(ctx, trip.ID, req.SeatsCount); err != nil {
		log.Printf("Бронирование %d: ошибка удержания мест: %v", booking.ID, err)
	}

	url, err := s.payments.CreatePaymentLink(ctx, booking.OrderCode, booking.Price,
		fmt.Sprintf("Бронирование %d мест, рейс %d", booking.SeatsCount, trip.ID))
	if err != nil {
		// Бронирование уже создано, ссылку клиент запросит повторно
		log.Printf("Бронирование %d: ошибка создания платежной ссылки: %v", booking.ID, err)
	} else {
		booking.PaymentURL = url
		if err := s.bookings.UpdatePaymentURL(ctx, booking.ID, url); err != nil {
			log.Printf("Бронирование %d: ошибка сохранения платежной ссылки: %v", booking.ID, err)
		}
	}

	s.notifier.Notify(ctx, trip.DriverID,
		"Новое бронирование",
		fmt.Sprintf("Пассажир забронировал %d мест на рейс %d", booking.SeatsCount, trip.ID),
		map[string]string{"booking_id": fmt.Sprint(booking.ID), "trip_id": fmt.Sprint(trip.ID)})

	return booking, nil
}

// ConfirmPayment обрабатывает успешный коллбэк платежного провайдера.
// Переводит бронирование в CONFIRMED (сбрасывая окно истечения) и при
// первом подтверждении каскадно подтверждает рейс.
func (s *BookingService) ConfirmPayment(ctx context.Context, orderCode string) error {
	booking, err := s.bookings.FindByOrderCode(ctx, orderCode)
	if err != nil {
		return err
	}

	if err := s.engine.Transition(ctx, booking, models.BookingStatusConfirmed, "оплата подтверждена"); err != nil {
		return err
	}

	trip, err := s.trips.FindByID(ctx, booking.TripID)
	if err == nil && trip.Status == models.TripStatusBooking {
		if err := s.engine.Transition(ctx, trip, models.TripStatusConfirmed, "получено подтвержденное бронирование"); err != nil {
			log.Printf("Бронирование %d: рейс %d не подтвержден: %v", booking.ID, trip.ID, err)
		}
	}
	if trip != nil {
		s.emitTripUpdated(ctx, trip)
	}

	s.notifier.Notify(ctx, booking.CustomerID,
		"Бронирование подтверждено",
		fmt.Sprintf("Оплата бронирования %d получена", booking.ID),
		map[string]string{"booking_id": fmt.Sprint(booking.ID)})

	return nil
}

// FailPayment обрабатывает коллбэк неуспешной или отмененной оплаты:
// бронирование отменяется, удержанные места освобождаются
func (s *BookingService) FailPayment(ctx context.Context, orderCode, reason string) error {
	booking, err := s.bookings.FindByOrderCode(ctx, orderCode)
	if err != nil {
		return err
	}

	if reason == "" {
		reason = "оплата не прошла"
	}
	if err := s.engine.Transition(ctx, booking, models.BookingStatusCancelled, reason); err != nil {
		return err
	}

	s.releaseSeats(ctx, booking)

	s.notifier.Notify(ctx, booking.CustomerID,
		"Бронирование отменено",
		fmt.Sprintf("Оплата бронирования %d не прошла", booking.ID),
		map[string]string{"booking_id": fmt.Sprint(booking.ID)})

	return nil
}

// CancelBooking отменяет бронирование по инициативе пассажира
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, customerID uint) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.CustomerID != customerID {
		return nil, ErrForbidden
	}

	if err := s.engine.Transition(ctx, booking, models.BookingStatusCancelled, "отменено пассажиром"); err != nil {
		return nil, err
	}

	s.releaseSeats(ctx, booking)

	if trip, err := s.trips.FindByID(ctx, booking.TripID); err == nil {
		s.notifier.Notify(ctx, trip.DriverID,
			"Бронирование отменено",
			fmt.Sprintf("Пассажир отменил бронирование %d", booking.ID),
			map[string]string{"booking_id": fmt.Sprint(booking.ID)})
		s.emitTripUpdated(ctx, trip)
	}

	return booking, nil
}

// ReleaseExpired - хук сборщика истекших записей: запись уже удалена
// хранилищем, остается освободить удержанные места и уведомить пассажира
func (s *BookingService) ReleaseExpired(ctx context.Context, entity models.TrackedEntity) {
	booking, ok := entity.(*models.Booking)
	if !ok {
		return
	}

	s.releaseSeats(ctx, booking)

	s.notifier.Notify(ctx, booking.CustomerID,
		"Бронирование истекло",
		fmt.Sprintf("Оплата бронирования %d не поступила вовремя", booking.ID),
		map[string]string{"booking_id": fmt.Sprint(booking.ID)})
}

func (s *BookingService) releaseSeats(ctx context.Context, booking *models.Booking) {
	if err := s.trips.AddBookedSeats(ctx, booking.TripID, -booking.SeatsCount); err != nil {
		log.Printf("Бронирование %d: ошибка освобождения мест: %v", booking.ID, err)
	}
}

// emitTripUpdated рассылает изменение рейса: списочное событие в комнату
// водителя и детальное - напрямую в сокеты пассажиров с бронированиями
func (s *BookingService) emitTripUpdated(ctx context.Context, trip *models.Trip) {
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
