package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"shuttle-backend/internal/models"
)

// ErrNotFound возвращается хранилищами при отсутствии записи
var ErrNotFound = errors.New("запись не найдена")

// Узкие интерфейсы хранилища документов: оркестрация работает только
// через них, что позволяет подменять хранилище в тестах

type BookingStore interface {
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByOrderCode(ctx context.Context, orderCode string) (*models.Booking, error)
	ListByCustomer(ctx context.Context, customerID uint) ([]models.Booking, error)
	ListByTrip(ctx context.Context, tripID uint) ([]models.Booking, error)
	UpdatePaymentURL(ctx context.Context, id uint, url string) error
}

type TripStore interface {
	FindByID(ctx context.Context, id uint) (*models.Trip, error)
	ListByItinerary(ctx context.Context, itineraryID uint) ([]models.Trip, error)
	AddBookedSeats(ctx context.Context, tripID uint, delta int) error
}

type ItineraryStore interface {
	FindByID(ctx context.Context, id uint) (*models.SharedItinerary, error)
	SaveStops(ctx context.Context, itinerary *models.SharedItinerary) error
}

type NotificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID uint) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uint) (*models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
}

type ConversationStore interface {
	Create(ctx context.Context, conversation *models.Conversation) error
	FindByID(ctx context.Context, id uint) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Conversation, error)
	CreateMessage(ctx context.Context, message *models.Message) error
}

type UserStore interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// Stores - реализации хранилищ поверх gorm
type Stores struct {
	Bookings      BookingStore
	Trips         TripStore
	Itineraries   ItineraryStore
	Notifications NotificationStore
	Conversations ConversationStore
	Users         UserStore
}

// NewStores собирает все хранилища на одном подключении к БД
func NewStores(db *gorm.DB) *Stores {
	return &Stores{
		Bookings:      &gormBookingStore{db: db},
		Trips:         &gormTripStore{db: db},
		Itineraries:   &gormItineraryStore{db: db},
		Notifications: &gormNotificationStore{db: db},
		Conversations: &gormConversationStore{db: db},
		Users:         &gormUserStore{db: db},
	}
}

func wrapFind(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

type gormBookingStore struct{ db *gorm.DB }

func (s *gormBookingStore) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, wrapFind(err, "бронирование")
	}
	return &booking, nil
}

func (s *gormBookingStore) FindByOrderCode(ctx context.Context, orderCode string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).Where("order_code = ?", orderCode).First(&booking).Error; err != nil {
		return nil, wrapFind(err, "бронирование")
	}
	return &booking, nil
}

func (s *gormBookingStore) ListByCustomer(ctx context.Context, customerID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

func (s *gormBookingStore) ListByTrip(ctx context.Context, tripID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).Where("trip_id = ?", tripID).Find(&bookings).Error
	return bookings, err
}

func (s *gormBookingStore) UpdatePaymentURL(ctx context.Context, id uint, url string) error {
	return s.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Update("payment_url", url).Error
}

type gormTripStore struct{ db *gorm.DB }

func (s *gormTripStore) FindByID(ctx context.Context, id uint) (*models.Trip, error) {
	var trip models.Trip
	if err := s.db.WithContext(ctx).First(&trip, id).Error; err != nil {
		return nil, wrapFind(err, "рейс")
	}
	return &trip, nil
}

func (s *gormTripStore) ListByItinerary(ctx context.Context, itineraryID uint) ([]models.Trip, error) {
	var trips []models.Trip
	err := s.db.WithContext(ctx).Where("itinerary_id = ?", itineraryID).Find(&trips).Error
	return trips, err
}

// AddBookedSeats атомарно изменяет счетчик занятых мест
func (s *gormTripStore) AddBookedSeats(ctx context.Context, tripID uint, delta int) error {
	return s.db.WithContext(ctx).
		Model(&models.Trip{}).
		Where("id = ?", tripID).
		UpdateColumn("booked_seats", gorm.Expr("booked_seats + ?", delta)).Error
}

type gormItineraryStore struct{ db *gorm.DB }

func (s *gormItineraryStore) FindByID(ctx context.Context, id uint) (*models.SharedItinerary, error) {
	var itinerary models.SharedItinerary
	if err := s.db.WithContext(ctx).First(&itinerary, id).Error; err != nil {
		return nil, wrapFind(err, "общий маршрут")
	}
	return &itinerary, nil
}

func (s *gormItineraryStore) SaveStops(ctx context.Context, itinerary *models.SharedItinerary) error {
	return s.db.WithContext(ctx).
		Model(itinerary).
		Update("stops", itinerary.Stops).Error
}

type gormNotificationStore struct{ db *gorm.DB }

func (s *gormNotificationStore) Create(ctx context.Context, notification *models.Notification) error {
	return s.db.WithContext(ctx).Create(notification).Error
}

func (s *gormNotificationStore) ListByUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(100).
		Find(&notifications).Error
	return notifications, err
}

func (s *gormNotificationStore) MarkRead(ctx context.Context, id, userID uint) (*models.Notification, error) {
	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&notification).Error; err != nil {
		return nil, wrapFind(err, "уведомление")
	}
	if !notification.IsRead {
		notification.IsRead = true
		if err := s.db.WithContext(ctx).Model(&notification).Update("is_read", true).Error; err != nil {
			return nil, err
		}
	}
	return &notification, nil
}

func (s *gormNotificationStore) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = false", userID).
		Count(&count).Error
	return count, err
}

type gormConversationStore struct{ db *gorm.DB }

func (s *gormConversationStore) Create(ctx context.Context, conversation *models.Conversation) error {
	return s.db.WithContext(ctx).Create(conversation).Error
}

func (s *gormConversationStore) FindByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := s.db.WithContext(ctx).First(&conversation, id).Error; err != nil {
		return nil, wrapFind(err, "переписка")
	}
	return &conversation, nil
}

func (s *gormConversationStore) ListByUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := s.db.WithContext(ctx).
		Where("customer_id = ? OR driver_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&conversations).Error
	return conversations, err
}

func (s *gormConversationStore) CreateMessage(ctx context.Context, message *models.Message) error {
	return s.db.WithContext(ctx).Create(message).Error
}

type gormUserStore struct{ db *gorm.DB }

func (s *gormUserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, wrapFind(err, "пользователь")
	}
	return &user, nil
}
