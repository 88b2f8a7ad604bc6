package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"shuttle-backend/internal/handlers"
	"shuttle-backend/internal/middleware"
	"shuttle-backend/internal/models"
	"shuttle-backend/internal/services"
)

// Deps - зависимости маршрутов, собираются в main
type Deps struct {
	DB           *gorm.DB
	Redis        *redis.Client
	Stores       *services.Stores
	Bookings     *services.BookingService
	Trips        *services.TripService
	Itineraries  *services.ItineraryService
	Notification *services.NotificationService
	Chat         *services.ChatService
	Locations    *services.LocationService
}

func SetupRoutes(api *gin.RouterGroup, deps Deps) {
	// Публичные маршруты для аутентификации
	auth := api.Group("/auth")
	{
		auth.POST("/request-code", handlers.SendVerificationCode(deps.Redis))
		auth.POST("/verify", handlers.VerifyCode(deps.DB, deps.Redis))
		auth.POST("/register", handlers.AuthRegister(deps.DB))
	}

	// Коллбэк платежного провайдера - без аутентификации
	api.POST("/payments/callback", handlers.PaymentCallback(deps.Bookings))

	// Защищенные маршруты (требуют аутентификации)
	protected := api.Group("")
	protected.Use(middleware.JWTAuth())
	{
		// Получение информации о текущем пользователе
		protected.GET("/user", handlers.GetCurrentUser(deps.DB))
		protected.PUT("/fcm-token", handlers.UpdateFCMToken(deps.DB))
		protected.POST("/auth/logout", handlers.Logout(deps.Redis))

		// Роуты для рейсов
		protected.GET("/trips/:id", handlers.TripGet(deps.Stores.Trips))
		protected.POST("/trips", middleware.RequireRole(models.RoleDriver), handlers.TripCreate(deps.Trips))
		protected.PUT("/trips/:id/status", middleware.RequireRole(models.RoleDriver), handlers.TripUpdateStatus(deps.Trips))
		protected.PUT("/trips/:id/cancel", middleware.RequireRole(models.RoleDriver), handlers.TripCancel(deps.Trips))

		// Смена водителя
		protected.POST("/driver/check-in", middleware.RequireRole(models.RoleDriver), handlers.DriverCheckIn(deps.Trips))
		protected.POST("/driver/check-out", middleware.RequireRole(models.RoleDriver), handlers.DriverCheckOut(deps.Trips))

		// Роуты для бронирований
		protected.POST("/bookings", handlers.BookingCreate(deps.Bookings))
		protected.GET("/bookings", handlers.BookingList(deps.Stores.Bookings))
		protected.GET("/bookings/:id", handlers.BookingGet(deps.Stores.Bookings))
		protected.PUT("/bookings/:id/cancel", handlers.BookingCancel(deps.Bookings))

		// Роуты для общих маршрутов
		protected.POST("/itineraries", middleware.RequireRole(models.RoleDriver), handlers.ItineraryCreate(deps.Itineraries))
		protected.GET("/itineraries/:id", handlers.ItineraryGet(deps.Stores.Itineraries))
		protected.PUT("/itineraries/:id/plan", middleware.RequireRole(models.RoleDriver), handlers.ItineraryPlan(deps.Itineraries))
		protected.PUT("/itineraries/:id/pass-stop", middleware.RequireRole(models.RoleDriver), handlers.ItineraryPassStop(deps.Itineraries))
		protected.PUT("/itineraries/:id/pass-start-point", middleware.RequireRole(models.RoleDriver), handlers.ItineraryPassStartPoint(deps.Itineraries))
		protected.PUT("/itineraries/:id/pass-end-point", middleware.RequireRole(models.RoleDriver), handlers.ItineraryPassEndPoint(deps.Itineraries))
		protected.PUT("/itineraries/:id/cancel", middleware.RequireRole(models.RoleDriver), handlers.ItineraryCancel(deps.Itineraries))

		// Роуты для транспорта
		protected.POST("/vehicles", middleware.RequireRole(models.RoleAdmin), handlers.VehicleCreate(deps.DB))
		protected.GET("/vehicles", handlers.VehicleList(deps.DB))
		protected.GET("/vehicles/:id/location", handlers.VehicleLocation(deps.Locations))

		// Роуты для уведомлений
		protected.GET("/notifications", handlers.NotificationList(deps.Notification))
		protected.PUT("/notifications/:id/read", handlers.NotificationMarkRead(deps.Notification))

		// Роуты для переписок
		protected.POST("/conversations", handlers.ConversationCreate(deps.Chat))
		protected.GET("/conversations", handlers.ConversationList(deps.Stores.Conversations))
		protected.POST("/conversations/messages", handlers.ConversationSendMessage(deps.Chat))
	}
}
