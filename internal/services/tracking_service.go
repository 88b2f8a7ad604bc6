package services

import (
	"context"
	"log"
	"time"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/presence"
)

// TrackingService раздает геопозицию транспорта подписанным пассажирам.
// Доставка at-most-once, побеждает последнее значение: пропущенные
// обновления не пересылаются, клиент после переподключения запрашивает
// последний снимок обычным запросом.
type TrackingService struct {
	locations *LocationService
	presence  *presence.Registry
	emitter   Emitter
	now       func() time.Time
}

func NewTrackingService(locations *LocationService, registry *presence.Registry, emitter Emitter) *TrackingService {
	return &TrackingService{
		locations: locations,
		presence:  registry,
		emitter:   emitter,
		now:       time.Now,
	}
}

// HandleDriverLocationUpdate обрабатывает событие геопозиции от водителя:
//  1. определяет закрепленный за водителем транспорт;
//  2. сохраняет последнее известное положение;
//  3. находит подписанных на транспорт пассажиров;
//  4. рассылает патч позиции каждому, у кого есть живое соединение.
//
// Отсутствующие или устаревшие записи присутствия молча пропускаются:
// для оффлайн-пользователя это штатное состояние, а не ошибка.
func (s *TrackingService) HandleDriverLocation(ctx context.Context, driverID uint, update models.LocationUpdate) {
	vehicleID, ok := s.locations.DriverVehicle(ctx, driverID)
	if !ok {
		log.Printf("Tracking: водитель %d прислал геопозицию вне смены", driverID)
		return
	}

	location := models.VehicleLocation{
		Latitude:  update.Latitude,
		Longitude: update.Longitude,
		Heading:   update.Heading,
		Speed:     update.Speed,
		UpdatedAt: s.now(),
	}
	s.locations.SetVehicleLocation(ctx, vehicleID, location)

	subscribers := s.locations.Subscribers(ctx, vehicleID)
	if len(subscribers) == 0 {
		return
	}

	event := UpdateLocationEvent(vehicleID)
	for _, userID := range subscribers {
		connectionID := s.presence.GetUserSocket(ctx, NamespaceTracking, userID)
		if connectionID == "" {
			continue
		}
		s.emitter.EmitToConn(ctx, connectionID, event, location)
	}
}
