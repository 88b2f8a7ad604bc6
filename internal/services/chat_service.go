package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"shuttle-backend/internal/models"
	"shuttle-backend/internal/presence"
)

// ErrNotParticipant возвращается при доступе к чужой переписке
var ErrNotParticipant = errors.New("пользователь не участвует в переписке")

// ChatService управляет переписками: комнаты по переписке, доставка
// сообщений участникам и список переписок при подключении
type ChatService struct {
	conversations ConversationStore
	rooms         RoomManager
	emitter       Emitter
	notifier      Notifier
	presence      *presence.Registry
}

func NewChatService(
	conversations ConversationStore,
	rooms RoomManager,
	emitter Emitter,
	notifier Notifier,
	registry *presence.Registry,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		rooms:         rooms,
		emitter:       emitter,
		notifier:      notifier,
		presence:      registry,
	}
}

// CreateConversation создает переписку пассажира с водителем и
// уведомляет сокеты обоих участников
func (s *ChatService) CreateConversation(ctx context.Context, customerID, driverID uint, tripID *uint) (*models.Conversation, error) {
	conversation := &models.Conversation{
		CustomerID: customerID,
		DriverID:   driverID,
		TripID:     tripID,
	}
	if err := s.conversations.Create(ctx, conversation); err != nil {
		return nil, err
	}

	for _, userID := range []uint{customerID, driverID} {
		for _, connectionID := range s.presence.GetSocketIDs(ctx, NamespaceConversations, userID) {
			s.emitter.EmitToConn(ctx, connectionID, EventNewConversation, conversation)
		}
	}

	return conversation, nil
}

// Join подключает сокет участника к комнате переписки
func (s *ChatService) Join(ctx context.Context, connectionID string, userID, conversationID uint) error {
	conversation, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.IsParticipant(userID) {
		return ErrNotParticipant
	}

	s.rooms.JoinRoom(connectionID, ConversationRoom(conversationID))
	return nil
}

// Leave отключает сокет от комнаты переписки
func (s *ChatService) Leave(connectionID string, conversationID uint) {
	s.rooms.LeaveRoom(connectionID, ConversationRoom(conversationID))
}

// SendMessage сохраняет сообщение и доставляет его в комнату переписки.
// Собеседник вне комнаты получает обычное уведомление.
func (s *ChatService) SendMessage(ctx context.Context, userID, conversationID uint, content string) (*models.Message, error) {
	conversation, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}

	message := &models.Message{
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        content,
	}
	if err := s.conversations.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	s.emitter.EmitToRoom(ctx, NamespaceConversations, ConversationRoom(conversationID), EventNewMessage, message)

	recipientID := conversation.CustomerID
	if userID == conversation.CustomerID {
		recipientID = conversation.DriverID
	}
	s.notifier.Notify(ctx, recipientID, "Новое сообщение", content,
		map[string]string{"conversation_id": fmt.Sprint(conversationID)})

	return message, nil
}

// SendConversationsList отправляет список переписок пользователя
// в только что подключенный сокет
func (s *ChatService) SendConversationsList(ctx context.Context, connectionID string, userID uint) {
	conversations, err := s.conversations.ListByUser(ctx, userID)
	if err != nil {
		log.Printf("Пользователь %d: ошибка получения списка переписок: %v", userID, err)
		return
	}
	s.emitter.EmitToConn(ctx, connectionID, EventConversationsList, conversations)
}
