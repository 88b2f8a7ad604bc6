package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shuttle-backend/internal/services"
)

// NotificationList возвращает уведомления текущего пользователя
func NotificationList(notificationService *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")

		notifications, err := notificationService.List(c.Request.Context(), userID.(uint))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении уведомлений"})
			return
		}

		c.JSON(http.StatusOK, notifications)
	}
}

// NotificationMarkRead помечает уведомление прочитанным
func NotificationMarkRead(notificationService *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный идентификатор"})
			return
		}

		userID, _ := c.Get("user_id")
		notification, err := notificationService.MarkRead(c.Request.Context(), uint(id), userID.(uint))
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Уведомление не найдено"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении уведомления"})
			return
		}

		c.JSON(http.StatusOK, notification)
	}
}
