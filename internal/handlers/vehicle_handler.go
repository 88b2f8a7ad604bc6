package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/services"
)

// VehicleCreate добавляет транспорт в автопарк
func VehicleCreate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PlateNumber string `json:"plateNumber" binding:"required"`
			Model       string `json:"model"`
			SeatsCount  int    `json:"seatsCount" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		vehicle := models.Vehicle{
			PlateNumber: req.PlateNumber,
			Model:       req.Model,
			SeatsCount:  req.SeatsCount,
		}
		if err := db.Create(&vehicle).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при добавлении транспорта"})
			return
		}

		c.JSON(http.StatusCreated, vehicle)
	}
}

// VehicleList возвращает весь автопарк
func VehicleList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var vehicles []models.Vehicle
		if err := db.Find(&vehicles).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении транспорта"})
			return
		}
		c.JSON(http.StatusOK, vehicles)
	}
}

// VehicleLocation возвращает последнее известное положение транспорта.
// Снимок для первичной отрисовки карты - дальше клиент получает
// обновления через сокет трекинга.
func VehicleLocation(locations *services.LocationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный идентификатор"})
			return
		}

		location, ok := locations.GetVehicleLocation(c.Request.Context(), uint(id))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Положение транспорта неизвестно"})
			return
		}

		c.JSON(http.StatusOK, location)
	}
}
