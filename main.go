package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shuttle-backend/internal/db"
	"shuttle-backend/internal/middleware"
	"shuttle-backend/internal/models"
	"shuttle-backend/internal/presence"
	"shuttle-backend/internal/routes"
	"shuttle-backend/internal/services"
	"shuttle-backend/internal/status"
	"shuttle-backend/internal/websocket"
)

func main() {
	// Устанавливаем режим релиза для продакшена
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используем переменные окружения")
	}

	// Подключение к базе данных
	gormDB, err := db.ConnectWithRetry(db.DSNFromEnv(), 5, 5*time.Second)
	if err != nil {
		log.Fatal("Ошибка подключения к базе данных:", err)
	}

	// Подключение к Redis - обязательная зависимость: на нем держатся
	// присутствие, сессии, геопозиции и межпроцессная доставка событий
	redisClient, err := db.NewRedisClient()
	if err != nil {
		log.Fatal("Ошибка подключения к Redis:", err)
	}
	defer redisClient.Close()
	log.Println("Успешное подключение к Redis")

	// Автоматическая миграция моделей
	if err := gormDB.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.Trip{},
		&models.Booking{},
		&models.SharedItinerary{},
		&models.Notification{},
		&models.Conversation{},
		&models.Message{},
	); err != nil {
		log.Fatal("Ошибка миграции базы данных:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Сокетный узел и реестр присутствия
	hub := websocket.NewHub(redisClient)
	hub.Start(ctx)
	registry := presence.NewRegistry(redisClient, 2*time.Hour)

	// Машина статусов
	engine := status.NewEngine(status.NewGormPersister(gormDB), status.DefaultRules())

	// Сервисы
	stores := services.NewStores(gormDB)
	locations := services.NewLocationService(redisClient)
	push := services.NewPushService()
	payments := services.NewPaymentService()

	notificationService := services.NewNotificationService(stores.Notifications, stores.Users, push, hub, registry)
	bookingService := services.NewBookingService(stores.Bookings, stores.Trips, engine, payments, notificationService, hub, registry)
	tripService := services.NewTripService(stores.Trips, stores.Bookings, engine, locations, notificationService, hub, registry)
	itineraryService := services.NewItineraryService(stores.Itineraries, stores.Trips, stores.Bookings, engine, hub, registry)
	tripService.OnItineraryTripCancel(itineraryService.NotifyTripCancelled)
	itineraryService.OnCancelTrip(tripService.CancelTrip)
	chatService := services.NewChatService(stores.Conversations, hub, hub, notificationService, registry)
	trackingService := services.NewTrackingService(locations, registry, hub)

	// Сборщик истекших записей: бронирования и рейсы без подтверждения,
	// маршруты без планирования
	sweepInterval := 30 * time.Second
	if val, err := strconv.Atoi(os.Getenv("EXPIRY_SWEEP_INTERVAL_SECONDS")); err == nil && val > 0 {
		sweepInterval = time.Duration(val) * time.Second
	}
	sweeper := status.NewSweeper(status.NewGormExpirySource(gormDB), sweepInterval,
		status.ExpiryTarget{
			Kind:      "booking",
			NewEntity: func() models.TrackedEntity { return &models.Booking{} },
			OnExpire:  bookingService.ReleaseExpired,
		},
		status.ExpiryTarget{
			Kind:      "trip",
			NewEntity: func() models.TrackedEntity { return &models.Trip{} },
		},
		status.ExpiryTarget{
			Kind:      "shared_itinerary",
			NewEntity: func() models.TrackedEntity { return &models.SharedItinerary{} },
		},
	)
	go sweeper.Run(ctx)

	// Создаем Gin роутер
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.PrometheusMiddleware())

	// Настройка доверенных прокси
	r.SetTrustedProxies([]string{"127.0.0.1"})

	// Настройка CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Добавляем эндпоинт для метрик Prometheus
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Проверка работоспособности системы
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// API группа
	api := r.Group("/api")
	routes.SetupRoutes(api, routes.Deps{
		DB:           gormDB,
		Redis:        redisClient,
		Stores:       stores,
		Bookings:     bookingService,
		Trips:        tripService,
		Itineraries:  itineraryService,
		Notification: notificationService,
		Chat:         chatService,
		Locations:    locations,
	})

	// WebSocket подключения - по одному каналу на namespace
	r.GET("/ws/:namespace", websocket.Handler(&websocket.HandlerDeps{
		Hub:       hub,
		Gate:      websocket.NewGate(redisClient),
		Presence:  registry,
		Tracking:  trackingService,
		Locations: locations,
		Chat:      chatService,
	}))

	// Получаем порт из переменных окружения
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Создаем HTTP сервер с настроенными таймаутами
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Сервер запущен на порту %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Ошибка запуска сервера: %s", err)
		}
	}()

	// Ожидаем сигнал для graceful shutdown
	<-ctx.Done()
	log.Println("Получен сигнал завершения, закрываем соединения...")

	// Даем 30 секунд на завершение текущих запросов
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Ошибка при graceful shutdown: %s", err)
	}

	log.Println("Сервер корректно завершил работу")
}
