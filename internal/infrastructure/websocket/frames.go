package websocket

import (
	"encoding/json"
	"errors"
	"time"

	"vendora/internal/domain/entity"
	apperrors "vendora/pkg/errors"
	"vendora/pkg/logger"
)

// Outbound frame types.
const (
	FrameConversations = "conversation_list"
	FrameMessages      = "message_batch"
	FrameError         = "error"
	FramePong          = "pong"
)

type Frame struct {
	Type           string             `json:"type"`
	ConversationID string             `json:"conversation_id,omitempty"`
	Conversations  []ConversationView `json:"conversations,omitempty"`
	Messages       []MessageView      `json:"messages,omitempty"`
	Error          *ErrorInfo         `json:"error,omitempty"`
	Timestamp      string             `json:"timestamp"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ConversationView struct {
	ID          string             `json:"id"`
	PartnerName string             `json:"partner_name,omitempty"`
	Type        entity.ConversationType `json:"type"`
	Display     entity.TypeDisplay `json:"display"`
	ContextID   string             `json:"context_id,omitempty"`
	LastMessage string             `json:"last_message,omitempty"`
	Preview     string             `json:"preview,omitempty"`
	Unread      int                `json:"unread"`
	Ephemeral   bool               `json:"ephemeral,omitempty"`
}

type MessageView struct {
	Key       string `json:"key"`
	SenderID  string `json:"sender_id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Time      string `json:"time"`
	Receipt   string `json:"receipt,omitempty"`
}

func marshalConversationFrame(viewerID string, conversations []*entity.Conversation) []byte {
	now := time.Now()
	views := make([]ConversationView, 0, len(conversations))
	for _, c := range conversations {
		view := ConversationView{
			ID:          c.ID,
			PartnerName: c.PartnerName,
			Type:        c.Type,
			Display:     c.Type.Display(),
			ContextID:   c.ContextID,
			LastMessage: c.LastMessage,
			Unread:      c.UnreadFor(viewerID),
			Ephemeral:   c.Ephemeral,
		}
		if c.LastMessageTimestamp != nil {
			view.Preview = entity.FormatTimestamp(*c.LastMessageTimestamp, now)
		}
		views = append(views, view)
	}
	return marshalFrame(Frame{Type: FrameConversations, Conversations: views})
}

func marshalMessageFrame(conversationID string, messages []*entity.Message) []byte {
	now := time.Now()
	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, MessageView{
			Key:       m.Key(),
			SenderID:  m.SenderID,
			Text:      m.Text,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
			Time:      entity.FormatTimestamp(m.Timestamp, now),
			Receipt:   m.ReadStatus.Label(now),
		})
	}
	return marshalFrame(Frame{
		Type:           FrameMessages,
		ConversationID: conversationID,
		Messages:       views,
	})
}

func marshalErrorFrame(err error) []byte {
	frameErr := &ErrorInfo{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		frameErr.Code = appErr.Code
		frameErr.Message = appErr.Message
	}
	return marshalFrame(Frame{Type: FrameError, Error: frameErr})
}

func marshalPongFrame() []byte {
	return marshalFrame(Frame{Type: FramePong})
}

func marshalFrame(f Frame) []byte {
	f.Timestamp = time.Now().UTC().Format(time.RFC3339)
	payload, err := json.Marshal(f)
	if err != nil {
		logger.Error("Failed to marshal %s frame: %v", f.Type, err)
		return []byte(`{"type":"error"}`)
	}
	return payload
}
