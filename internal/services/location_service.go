package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"shuttle-backend/internal/models"
)

// LocationService хранит в Redis эфемерное состояние отслеживания:
// последнее известное положение транспорта, множества подписчиков
// и привязку водителя к транспорту на смене. Все данные переживают
// рестарт процесса, но не обязаны переживать рестарт Redis - следующее
// обновление от водителя их восстанавливает.
type LocationService struct {
	client      *redis.Client
	locationTTL time.Duration
	shiftTTL    time.Duration
}

// NewLocationService создает сервис поверх общего клиента Redis
func NewLocationService(client *redis.Client) *LocationService {
	locationTTL := 300
	if val, err := strconv.Atoi(os.Getenv("VEHICLE_LOCATION_TTL_SECONDS")); err == nil && val > 0 {
		locationTTL = val
	}

	shiftTTL := 12 * 3600
	if val, err := strconv.Atoi(os.Getenv("DRIVER_SHIFT_TTL_SECONDS")); err == nil && val > 0 {
		shiftTTL = val
	}

	return &LocationService{
		client:      client,
		locationTTL: time.Duration(locationTTL) * time.Second,
		shiftTTL:    time.Duration(shiftTTL) * time.Second,
	}
}

func vehicleLocationKey(vehicleID uint) string {
	return fmt.Sprintf("vehicle:loc:%d", vehicleID)
}

func vehicleSubsKey(vehicleID uint) string {
	return fmt.Sprintf("vehicle:subs:%d", vehicleID)
}

func driverVehicleKey(driverID uint) string {
	return fmt.Sprintf("driver:vehicle:%d", driverID)
}

// SetVehicleLocation сохраняет последнее известное положение транспорта
func (s *LocationService) SetVehicleLocation(ctx context.Context, vehicleID uint, location models.VehicleLocation) {
	data, err := json.Marshal(location)
	if err != nil {
		log.Printf("Tracking: ошибка сериализации позиции транспорта %d: %v", vehicleID, err)
		return
	}
	if err := s.client.Set(ctx, vehicleLocationKey(vehicleID), data, s.locationTTL).Err(); err != nil {
		log.Printf("Tracking: ошибка сохранения позиции транспорта %d: %v", vehicleID, err)
	}
}

// GetVehicleLocation возвращает последнее известное положение транспорта
func (s *LocationService) GetVehicleLocation(ctx context.Context, vehicleID uint) (models.VehicleLocation, bool) {
	var location models.VehicleLocation

	val, err := s.client.Get(ctx, vehicleLocationKey(vehicleID)).Result()
	if err == redis.Nil {
		return location, false
	}
	if err != nil {
		log.Printf("Tracking: ошибка чтения позиции транспорта %d: %v", vehicleID, err)
		return location, false
	}

	if err := json.Unmarshal([]byte(val), &location); err != nil {
		log.Printf("Tracking: поврежденная позиция транспорта %d: %v", vehicleID, err)
		return location, false
	}
	return location, true
}

// Subscribe подписывает пользователя на геопозицию транспорта
func (s *LocationService) Subscribe(ctx context.Context, vehicleID, userID uint) {
	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, vehicleSubsKey(vehicleID), userID)
	pipe.Expire(ctx, vehicleSubsKey(vehicleID), 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Tracking: ошибка подписки пользователя %d на транспорт %d: %v", userID, vehicleID, err)
	}
}

// Unsubscribe отписывает пользователя от геопозиции транспорта
func (s *LocationService) Unsubscribe(ctx context.Context, vehicleID, userID uint) {
	if err := s.client.SRem(ctx, vehicleSubsKey(vehicleID), userID).Err(); err != nil {
		log.Printf("Tracking: ошибка отписки пользователя %d от транспорта %d: %v", userID, vehicleID, err)
	}
}

// Subscribers возвращает идентификаторы пользователей, следящих за транспортом
func (s *LocationService) Subscribers(ctx context.Context, vehicleID uint) []uint {
	members, err := s.client.SMembers(ctx, vehicleSubsKey(vehicleID)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Tracking: ошибка чтения подписчиков транспорта %d: %v", vehicleID, err)
		}
		return nil
	}

	subscribers := make([]uint, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			continue
		}
		subscribers = append(subscribers, uint(id))
	}
	return subscribers
}

// SetDriverVehicle закрепляет транспорт за водителем на смену (check-in)
func (s *LocationService) SetDriverVehicle(ctx context.Context, driverID, vehicleID uint) error {
	if err := s.client.Set(ctx, driverVehicleKey(driverID), vehicleID, s.shiftTTL).Err(); err != nil {
		log.Printf("Tracking: ошибка закрепления транспорта %d за водителем %d: %v", vehicleID, driverID, err)
		return err
	}
	return nil
}

// DriverVehicle возвращает транспорт, закрепленный за водителем
func (s *LocationService) DriverVehicle(ctx context.Context, driverID uint) (uint, bool) {
	val, err := s.client.Get(ctx, driverVehicleKey(driverID)).Result()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		log.Printf("Tracking: ошибка чтения транспорта водителя %d: %v", driverID, err)
		return 0, false
	}

	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// ClearDriverVehicle снимает закрепление транспорта (check-out)
func (s *LocationService) ClearDriverVehicle(ctx context.Context, driverID uint) error {
	if err := s.client.Del(ctx, driverVehicleKey(driverID)).Err(); err != nil {
		log.Printf("Tracking: ошибка снятия закрепления транспорта водителя %d: %v", driverID, err)
		return err
	}
	return nil
}
