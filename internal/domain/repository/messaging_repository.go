package repository

import (
	"context"

	"vendora/internal/domain/entity"
)

// ConversationEvent is one delivery from a conversation subscription: either
// the complete current list or a transport error. Errors are events, not
// terminations; the subscription keeps its channel open until canceled unless
// the underlying listener is gone.
type ConversationEvent struct {
	Conversations []*entity.Conversation
	Err           error
}

// MessageEvent is one delivery from a message subscription: the complete
// current history of one conversation, or a transport error.
type MessageEvent struct {
	Messages []*entity.Message
	Err      error
}

// CancelFunc tears down a subscription. After it returns the event channel
// produces no further deliveries and is eventually closed.
type CancelFunc func()

type MessagingRepository interface {
	// SubscribeConversations delivers the complete current set of the user's
	// conversations on every backend change. Zero conversations is a valid
	// delivery, not an error.
	SubscribeConversations(ctx context.Context, userID string) (<-chan ConversationEvent, CancelFunc, error)

	// SubscribeMessages delivers the complete current message history of one
	// conversation on every change.
	SubscribeMessages(ctx context.Context, conversationID string) (<-chan MessageEvent, CancelFunc, error)

	// SendMessage persists msg under conv's id, materializing the
	// conversation document first if it does not exist yet.
	SendMessage(ctx context.Context, conv *entity.Conversation, msg *entity.Message) (*entity.Message, error)

	// MarkConversationRead clears the user's unread counter and flags their
	// unread messages as read. Idempotent: repeating it is a no-op.
	MarkConversationRead(ctx context.Context, conversationID, userID string) error
}
