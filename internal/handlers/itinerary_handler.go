package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/services"
	"shuttle-backend/internal/status"
)

func itineraryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Маршрут не найден"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Недостаточно прав"})
	case errors.Is(err, services.ErrStopNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Остановка не найдена"})
	case errors.Is(err, services.ErrEmptyStops):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Маршрут должен содержать хотя бы одну остановку"})
	case errors.Is(err, status.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Недопустимый переход статуса маршрута"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обработке маршрута"})
	}
}

// ItineraryCreate создает общий маршрут с окном ожидания планирования
func ItineraryCreate(itineraryService *services.ItineraryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")

		itinerary, err := itineraryService.Create(c.Request.Context(), userID.(uint))
		if err != nil {
			itineraryError(c, err)
			return
		}

		c.JSON(http.StatusCreated, itinerary)
	}
}

// ItineraryGet возвращает общий маршрут по идентификатору
func ItineraryGet(itineraries services.ItineraryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный идентификатор"})
			return
		}

		itinerary, err := itineraries.FindByID(c.Request.Context(), uint(id))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Маршрут не найден"})
			return
		}

		c.JSON(http.StatusOK, itinerary)
	}
}

// ItineraryPlan сохраняет упорядоченный список остановок маршрута
func ItineraryPlan(itineraryService *services.ItineraryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный идентификатор"})
			return
		}

		var req struct {
			Stops models.Stops `json:"stops" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		userID, _ := c.Get("user_id")
		itinerary, err := itineraryService.Plan(c.Request.Context(), uint(id), userID.(uint), req.Stops)
		if err != nil {
			itineraryError(c, err)
			return
		}

		c.JSON(http.StatusOK, itinerary)
	}
}

// ItineraryPassStop отмечает остановку маршрута пройденной
func ItineraryPassStop(itineraryService *services.ItineraryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный идентификатор"})
			return
		}

		var req struct {
			OrderNum int `json:"orderNum" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		userID, _ := c.Get("user_id")
		itinerary, err := itineraryService.PassStop(c.Request.Context(), uint(id), userID.(uint), req.OrderNum)
		if err != nil {
			itineraryError(c, err)
			return
		}

		c.JSON(http.StatusOK, itinerary)
	}
}

// ItineraryPassStartPoint отмечает пройденной первую остановку маршрута
func ItineraryPassStartPoint(itineraryService *services.ItineraryService) gin.HandlerFunc {
	return passBoundaryHandler(itineraryService.PassStartPoint)
}

// ItineraryPassEndPoint отмечает пройденной последнюю остановку маршрута
func ItineraryPassEndPoint(itineraryService *services.ItineraryService) gin.HandlerFunc {
	return passBoundaryHandler(itineraryService.PassEndPoint)
}

func passBoundaryHandler(pass func(ctx context.Context, itineraryID, driverID uint) (*models.SharedItinerary, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный идентификатор"})
			return
		}

		userID, _ := c.Get("user_id")
		itinerary, err := pass(c.Request.Context(), uint(id), userID.(uint))
		if err != nil {
			itineraryError(c, err)
			return
		}

		c.JSON(http.StatusOK, itinerary)
	}
}

// ItineraryCancel отменяет общий маршрут вместе с его рейсами
func ItineraryCancel(itineraryService *services.ItineraryService) gin.HandlerFunc {
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
		itinerary, err := itineraryService.Cancel(c.Request.Context(), uint(id), userID.(uint), req.Reason)
		if err != nil {
			itineraryError(c, err)
			return
		}

		c.JSON(http.StatusOK, itinerary)
	}
}
