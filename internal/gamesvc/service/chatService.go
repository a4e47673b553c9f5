package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/avvvet/gatortots-services/internal/gamesvc/models"
)

const maxMessageLen = 255

type MessageStore interface {
	CreateMessage(ctx context.Context, roomID, userID int64, content string) (*models.Message, error)
	ListMessages(ctx context.Context, roomID int64, before int64, limit int) ([]models.Message, error)
}

type ChatService struct {
	messageStore MessageStore
}

func NewChatService(messageStore MessageStore) *ChatService {
	return &ChatService{messageStore: messageStore}
}

func (s *ChatService) Send(ctx context.Context, roomID, userID int64, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("message is empty")
	}
	if utf8.RuneCountInString(content) > maxMessageLen {
		return nil, invalid("message is longer than %d characters", maxMessageLen)
	}
	return s.messageStore.CreateMessage(ctx, roomID, userID, content)
}

func (s *ChatService) History(ctx context.Context, roomID, before int64, limit int) ([]models.Message, error) {
	return s.messageStore.ListMessages(ctx, roomID, before, clampLimit(limit))
}
