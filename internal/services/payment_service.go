package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// PaymentService создает платежные ссылки через внешнего провайдера.
// Провайдер уведомляет о результате оплаты коллбэком на /payments/callback.
type PaymentService struct {
	baseURL     string
	apiKey      string
	callbackURL string
	client      *http.Client
}

func NewPaymentService() *PaymentService {
	return &PaymentService{
		baseURL:     os.Getenv("PAYMENT_API_URL"),
		apiKey:      os.Getenv("PAYMENT_API_KEY"),
		callbackURL: os.Getenv("PAYMENT_CALLBACK_URL"),
		client:      &http.Client{},
	}
}

type paymentLinkRequest struct {
	OrderID     string  `json:"order_id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	CallbackURL string  `json:"callback_url"`
}

type paymentLinkResponse struct {
	PaymentURL string `json:"payment_url"`
	Error      string `json:"error,omitempty"`
}

// CreatePaymentLink создает платежную ссылку по коду заказа
func (s *PaymentService) CreatePaymentLink(ctx context.Context, orderCode string, amount float64, description string) (string, error) {
	payload := paymentLinkRequest{
		OrderID:     orderCode,
		Amount:      amount,
		Currency:    "KZT",
		Description: description,
		CallbackURL: s.callbackURL,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации платежного запроса: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/invoices", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("ошибка создания запроса: %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ошибка обращения к платежному провайдеру: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения ответа провайдера: %v", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("платежный провайдер вернул ошибку: %s, тело: %s", resp.Status, string(body))
	}

	var result paymentLinkResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("ошибка разбора ответа провайдера: %v", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("платежный провайдер отклонил запрос: %s", result.Error)
	}

	return result.PaymentURL, nil
}
