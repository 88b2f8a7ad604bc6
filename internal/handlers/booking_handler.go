package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/services"
	"shuttle-backend/internal/status"
)

// BookingCreate создает новое бронирование с окном ожидания оплаты
func BookingCreate(bookingService *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			TripID     uint   `json:"tripId" binding:"required"`
			SeatsCount int    `json:"seatsCount" binding:"required"`
			Comment    string `json:"comment"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		userID, _ := c.Get("user_id")
		customerID := userID.(uint)

		booking, err := bookingService.CreateBooking(c.Request.Context(), services.CreateBookingRequest{
			TripID:     req.TripID,
			CustomerID: customerID,
			SeatsCount: req.SeatsCount,
			Comment:    req.Comment,
		})
		if err != nil {
			switch {
			case errors.Is(err, services.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Рейс не найден"})
			case errors.Is(err, services.ErrTripNotBookable):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Рейс недоступен для бронирования"})
			case errors.Is(err, services.ErrNotEnoughSeats):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Недостаточно свободных мест"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании бронирования"})
			}
			return
		}

		c.JSON(http.StatusCreated, booking.ToResponse())
	}
}

// BookingList возвращает бронирования текущего пользователя
func BookingList(bookings services.BookingStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")

		list, err := bookings.ListByCustomer(c.Request.Context(), userID.(uint))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении бронирований"})
			return
		}

		responses := make([]models.BookingResponse, 0, len(list))
		for i := range list {
			responses = append(responses, list[i].ToResponse())
		}
		c.JSON(http.StatusOK, responses)
	}
}

// BookingGet возвращает бронирование по идентификатору
func BookingGet(bookings services.BookingStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный идентификатор"})
			return
		}

		booking, err := bookings.FindByID(c.Request.Context(), uint(id))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Бронирование не найдено"})
			return
		}

		userID, _ := c.Get("user_id")
		role := c.GetString("role")
		if booking.CustomerID != userID.(uint) && role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Недостаточно прав"})
			return
		}

		c.JSON(http.StatusOK, booking.ToResponse())
	}
}

// BookingCancel отменяет бронирование по инициативе пассажира
func BookingCancel(bookingService *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный идентификатор"})
			return
		}

		userID, _ := c.Get("user_id")
		booking, err := bookingService.CancelBooking(c.Request.Context(), uint(id), userID.(uint))
		if err != nil {
			switch {
			case errors.Is(err, services.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Бронирование не найдено"})
			case errors.Is(err, services.ErrForbidden):
				c.JSON(http.StatusForbidden, gin.H{"error": "Недостаточно прав"})
			case errors.Is(err, status.ErrInvalidTransition):
				c.JSON(http.StatusConflict, gin.H{"error": "Бронирование нельзя отменить в текущем статусе"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при отмене бронирования"})
			}
			return
		}

		c.JSON(http.StatusOK, booking.ToResponse())
	}
}
