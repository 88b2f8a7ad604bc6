package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// PushService отправляет push-уведомления через FCM
type PushService struct {
	serverKey string
	client    *http.Client
}

type fcmPayload struct {
	To           string            `json:"to"`
	Data         map[string]string `json:"data,omitempty"`
	Notification struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"notification"`
}

func NewPushService() *PushService {
	return &PushService{
		serverKey: os.Getenv("FIREBASE_SERVER_KEY"),
		client:    &http.Client{},
	}
}

func (s *PushService) SendPush(ctx context.Context, token, title, body string, data map[string]string) error {
	payload := fcmPayload{
		To:   token,
		Data: data,
	}
	payload.Notification.Title = title
	payload.Notification.Body = body

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshaling notification: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://fcm.googleapis.com/fcm/send", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Authorization", "key="+s.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending notification: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("FCM returned error: %v", resp.Status)
	}

	return nil
}
