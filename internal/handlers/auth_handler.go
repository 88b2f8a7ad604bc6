package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/utils"
	"shuttle-backend/internal/websocket"
)

type SendCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type VerifyCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

type AuthResponse struct {
	Success  bool                 `json:"success"`
	Message  string               `json:"message,omitempty"`
	Error    string               `json:"error,omitempty"`
	Token    string               `json:"token,omitempty"`
	ClientID string               `json:"client_id,omitempty"`
	User     *models.UserResponse `json:"user,omitempty"`
}

func loginCodeKey(phone string) string {
	return "login:code:" + phone
}

// SendVerificationCode генерирует код подтверждения и сохраняет его
// в Redis на 5 минут. Канал доставки кода подключается отдельно,
// в режиме разработки код возвращается в ответе.
func SendVerificationCode(redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SendCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, AuthResponse{
				Success: false,
				Message: "Неверный формат данных",
				Error:   err.Error(),
			})
			return
		}

		code := fmt.Sprintf("%04d", rand.Intn(10000))
		if err := redisClient.Set(c.Request.Context(), loginCodeKey(req.Phone), code, 5*time.Minute).Err(); err != nil {
			log.Printf("Ошибка сохранения кода для номера %s: %v", req.Phone, err)
			c.JSON(http.StatusInternalServerError, AuthResponse{
				Success: false,
				Message: "Ошибка при отправке кода подтверждения",
			})
			return
		}

		log.Printf("Сгенерирован код подтверждения для номера: %s", req.Phone)

		resp := AuthResponse{Success: true, Message: "Код подтверждения отправлен"}
		if os.Getenv("APP_ENV") == "development" {
			resp.Message = "Код подтверждения: " + code
		}
		c.JSON(http.StatusOK, resp)
	}
}

// VerifyCode проверяет код подтверждения, находит пользователя и выдает
// JWT вместе с идентификатором клиента. Запись сессии в Redis живет
// столько же, сколько токен - сокетный шлюз проверяет ее на каждом
// рукопожатии.
func VerifyCode(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, AuthResponse{
				Success: false,
				Message: "Неверный формат данных",
				Error:   err.Error(),
			})
			return
		}

		ctx := c.Request.Context()
		stored, err := redisClient.Get(ctx, loginCodeKey(req.Phone)).Result()
		if err != nil || stored != req.Code {
			c.JSON(http.StatusBadRequest, AuthResponse{
				Success: false,
				Message: "Неверный код подтверждения",
			})
			return
		}
		redisClient.Del(ctx, loginCodeKey(req.Phone))

		var user models.User
		if result := db.Where("phone = ?", req.Phone).First(&user); result.Error != nil {
			c.JSON(http.StatusUnauthorized, AuthResponse{
				Success: false,
				Message: "Пользователь не найден",
			})
			return
		}

		token, err := utils.GenerateJWT(user.ID, user.Role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, AuthResponse{
				Success: false,
				Message: "Ошибка при создании токена",
			})
			return
		}

		clientID := uuid.New().String()
		session, _ := json.Marshal(websocket.Session{
			UserID: user.ID,
			Role:   user.Role,
			Active: true,
		})
		if err := redisClient.Set(ctx, websocket.SessionKey(clientID), session, 24*time.Hour).Err(); err != nil {
			log.Printf("Ошибка сохранения сессии пользователя %d: %v", user.ID, err)
			c.JSON(http.StatusInternalServerError, AuthResponse{
				Success: false,
				Message: "Ошибка при создании сессии",
			})
			return
		}

		userResponse := user.ToResponse()
		c.JSON(http.StatusOK, AuthResponse{
			Success:  true,
			Token:    token,
			ClientID: clientID,
			User:     &userResponse,
		})
	}
}

// AuthRegister создает нового пользователя
func AuthRegister(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			FirstName string `json:"firstName" binding:"required"`
			LastName  string `json:"lastName" binding:"required"`
			Phone     string `json:"phone" binding:"required"`
			Role      string `json:"role"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		if req.Role != models.RoleDriver {
			req.Role = models.RoleCustomer
		}

		var existing models.User
		if result := db.Where("phone = ?", req.Phone).First(&existing); result.Error == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Пользователь с таким номером уже существует"})
			return
		}

		user := models.User{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
			Role:      req.Role,
		}
		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании пользователя"})
			return
		}

		c.JSON(http.StatusCreated, user.ToResponse())
	}
}

// Logout деактивирует сессию клиента - сокетный шлюз перестает
// пропускать новые подключения с этим client id
func Logout(redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ClientID string `json:"client_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		ctx := c.Request.Context()
		key := websocket.SessionKey(req.ClientID)
		val, err := redisClient.Get(ctx, key).Result()
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"message": "Сессия уже завершена"})
			return
		}

		var session websocket.Session
		if err := json.Unmarshal([]byte(val), &session); err == nil {
			if userID, exists := c.Get("user_id"); exists && session.UserID != userID.(uint) {
				c.JSON(http.StatusForbidden, gin.H{"error": "Сессия принадлежит другому пользователю"})
				return
			}
			session.Active = false
			updated, _ := json.Marshal(session)
			redisClient.Set(ctx, key, updated, time.Hour)
		}

		c.JSON(http.StatusOK, gin.H{"message": "Сессия завершена"})
	}
}

// GetCurrentUser возвращает профиль текущего пользователя
func GetCurrentUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Пользователь не найден"})
			return
		}

		c.JSON(http.StatusOK, user.ToResponse())
	}
}

// UpdateFCMToken сохраняет токен устройства для push-уведомлений
func UpdateFCMToken(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			FCMToken string `json:"fcmToken" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		userID, _ := c.Get("user_id")
		if err := db.Model(&models.User{}).Where("id = ?", userID).Update("fcm_token", req.FCMToken).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при сохранении токена"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Токен обновлен"})
	}
}
