package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"shuttle-backend/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используем переменные окружения")
	}

	token, err := utils.GenerateAdminJWT()
	if err != nil {
		log.Fatalf("Ошибка генерации токена администратора: %v", err)
	}

	fmt.Printf("Токен администратора: %s\n", token)
}
