package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shuttle-backend/internal/utils"
)

// JWTAuth проверяет Bearer-токен и кладет user_id и role в контекст запроса
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Отсутствует токен авторизации"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Неверный формат токена"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Недействительный токен"})
			c.Abort()
			return
		}

		// Для админа user_id в токене отсутствует
		if claims.Role == "admin" {
			c.Set("user_id", uint(0))
			c.Set("role", "admin")
			c.Next()
			return
		}

		if claims.UserID == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Недействительный ID пользователя"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RequireRole пропускает только пользователей с указанной ролью.
// Админ проходит любую проверку.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := c.GetString("role")
		if current != role && current != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Недостаточно прав"})
			c.Abort()
			return
		}
		c.Next()
	}
}
