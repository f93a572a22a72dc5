package draft

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/DoyleJ11/draftroom/internal/realtime"
	"github.com/DoyleJ11/draftroom/internal/store"
)

const maxChatLength = 500

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

func (s *Service) SendChat(ctx context.Context, sessionID, participantID, body string) (store.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" || utf8.RuneCountInString(body) > maxChatLength {
		return store.Message{}, fmt.Errorf("message must be 1-%d characters: %w", maxChatLength, ErrInvalidInput)
	}
	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return store.Message{}, err
	}
	if p.SessionID != sessionID {
		return store.Message{}, ErrForbidden
	}

	m := store.Message{
		ID:            newID(),
		SessionID:     sessionID,
		ParticipantID: p.ID,
		DisplayName:   p.DisplayName,
		Body:          body,
		CreatedAt:     s.now(),
	}
	if err := s.store.AppendMessage(ctx, m); err != nil {
		return m, fmt.Errorf("save message: %w", err)
	}
	s.pub.Publish(realtime.Chat(m))
	return m, nil
}

// ListMessages returns the most recent messages, oldest first.
func (s *Service) ListMessages(ctx context.Context, sessionID string, limit int) ([]store.Message, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}
	return s.store.ListMessages(ctx, sessionID, limit)
}
