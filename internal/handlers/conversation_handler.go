package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/services"
)

// ConversationCreate создает переписку пассажира с водителем
func ConversationCreate(chatService *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			DriverID uint  `json:"driverId" binding:"required"`
			TripID   *uint `json:"tripId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		userID, _ := c.Get("user_id")
		conversation, err := chatService.CreateConversation(c.Request.Context(), userID.(uint), req.DriverID, req.TripID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании переписки"})
			return
		}

		c.JSON(http.StatusCreated, conversation)
	}
}

// ConversationList возвращает переписки текущего пользователя
func ConversationList(conversations services.ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")

		list, err := conversations.ListByUser(c.Request.Context(), userID.(uint))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении переписок"})
			return
		}

		if list == nil {
			list = []models.Conversation{}
		}
		c.JSON(http.StatusOK, list)
	}
}

// ConversationSendMessage отправляет сообщение через REST - для клиентов
// без открытого сокета. Доставка участникам та же, что у сокетного пути.
func ConversationSendMessage(chatService *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ConversationID uint   `json:"conversationId" binding:"required"`
			Content        string `json:"content" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		userID, _ := c.Get("user_id")
		message, err := chatService.SendMessage(c.Request.Context(), userID.(uint), req.ConversationID, req.Content)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Переписка не найдена"})
			case errors.Is(err, services.ErrNotParticipant):
				c.JSON(http.StatusForbidden, gin.H{"error": "Недостаточно прав"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при отправке сообщения"})
			}
			return
		}

		c.JSON(http.StatusCreated, message)
	}
}
