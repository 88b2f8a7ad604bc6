package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/services"
	"shuttle-backend/internal/status"
)

// TripCreate создает новый рейс с окном ожидания подтвержденного
// бронирования
func TripCreate(tripService *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			VehicleID   uint      `json:"vehicleId" binding:"required"`
			ItineraryID *uint     `json:"itineraryId"`
			FromAddress string    `json:"fromAddress" binding:"required"`
			ToAddress   string    `json:"toAddress" binding:"required"`
			Price       float64   `json:"price" binding:"required"`
			SeatsCount  int       `json:"seatsCount" binding:"required"`
			DepartureAt time.Time `json:"departureAt" binding:"required"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		userID, _ := c.Get("user_id")
		trip, err := tripService.CreateTrip(c.Request.Context(), services.CreateTripRequest{
			DriverID:    userID.(uint),
			VehicleID:   req.VehicleID,
			ItineraryID: req.ItineraryID,
			FromAddress: req.FromAddress,
			ToAddress:   req.ToAddress,
			Price:       req.Price,
			SeatsCount:  req.SeatsCount,
			DepartureAt: req.DepartureAt,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании рейса"})
			return
		}

		c.JSON(http.StatusCreated, trip.ToResponse())
	}
}

// TripGet возвращает рейс по идентификатору
func TripGet(trips services.TripStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный идентификатор"})
			return
		}

		trip, err := trips.FindByID(c.Request.Context(), uint(id))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Рейс не найден"})
			return
		}

		c.JSON(http.StatusOK, trip.ToResponse())
	}
}

// TripUpdateStatus переводит рейс в новый статус по команде водителя
func TripUpdateStatus(tripService *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный идентификатор"})
			return
		}

		var req struct {
			Status string `json:"status" binding:"required"`
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		userID, _ := c.Get("user_id")
		trip, err := tripService.UpdateStatus(c.Request.Context(), uint(id), userID.(uint),
			models.Status(req.Status), req.Reason)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Рейс не найден"})
			case errors.Is(err, services.ErrForbidden):
				c.JSON(http.StatusForbidden, gin.H{"error": "Недостаточно прав"})
			case errors.Is(err, status.ErrInvalidTransition):
				c.JSON(http.StatusConflict, gin.H{"error": "Недопустимый переход статуса"})
			case errors.Is(err, status.ErrVersionConflict):
				c.JSON(http.StatusConflict, gin.H{"error": "Рейс изменен параллельным запросом, повторите"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении статуса"})
			}
			return
		}

		c.JSON(http.StatusOK, trip.ToResponse())
	}
}

// TripCancel отменяет рейс вместе с активными бронированиями
func TripCancel(tripService *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный идентификатор"})
			return
		}

		var req struct {
			Reason string `json:"reason"`
		}
		c.ShouldBindJSON(&req)

		userID, _ := c.Get("user_id")
		trip, err := tripService.CancelTrip(c.Request.Context(), uint(id), userID.(uint), req.Reason)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Рейс не найден"})
			case errors.Is(err, services.ErrForbidden):
				c.JSON(http.StatusForbidden, gin.H{"error": "Недостаточно прав"})
			case errors.Is(err, status.ErrInvalidTransition):
				c.JSON(http.StatusConflict, gin.H{"error": "Рейс нельзя отменить в текущем статусе"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при отмене рейса"})
			}
			return
		}

		c.JSON(http.StatusOK, trip.ToResponse())
	}
}

// DriverCheckIn открывает смену водителя на транспорте
func DriverCheckIn(tripService *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			VehicleID uint `json:"vehicleId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		userID, _ := c.Get("user_id")
		if err := tripService.CheckIn(c.Request.Context(), userID.(uint), req.VehicleID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при открытии смены"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Смена открыта"})
	}
}

// DriverCheckOut закрывает смену водителя
func DriverCheckOut(tripService *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		if err := tripService.CheckOut(c.Request.Context(), userID.(uint)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при закрытии смены"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Смена закрыта"})
	}
}
