package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"shuttle-backend/internal/middleware"
	"shuttle-backend/internal/services"
)

// PaymentCallback обрабатывает коллбэк платежного провайдера.
// Провайдер повторяет доставку при не-200 ответе, поэтому отвечаем
// 200 всегда - ошибки обработки только логируются.
func PaymentCallback(bookingService *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			OrderID string `json:"order_id" binding:"required"`
			Status  string `json:"status" binding:"required"`
			Reason  string `json:"reason"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			log.Printf("Платежный коллбэк: неверный формат данных: %v", err)
			middleware.TrackPaymentCallback("malformed")
			c.JSON(http.StatusOK, gin.H{"message": "принято"})
			return
		}

		ctx := c.Request.Context()
		switch req.Status {
		case "success", "paid":
			if err := bookingService.ConfirmPayment(ctx, req.OrderID); err != nil {
				log.Printf("Платежный коллбэк: заказ %s не подтвержден: %v", req.OrderID, err)
				middleware.TrackPaymentCallback("confirm_failed")
			} else {
				middleware.TrackPaymentCallback("confirmed")
			}
		case "failed", "cancelled":
			if err := bookingService.FailPayment(ctx, req.OrderID, req.Reason); err != nil {
				log.Printf("Платежный коллбэк: заказ %s не отменен: %v", req.OrderID, err)
				middleware.TrackPaymentCallback("cancel_failed")
			} else {
				middleware.TrackPaymentCallback("cancelled")
			}
		default:
			log.Printf("Платежный коллбэк: неизвестный статус %q для заказа %s", req.Status, req.OrderID)
			middleware.TrackPaymentCallback("unknown_status")
		}

		c.JSON(http.StatusOK, gin.H{"message": "принято"})
	}
}
