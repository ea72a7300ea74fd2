package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"vendora/internal/domain/entity"
	"vendora/internal/domain/repository"
	"vendora/pkg/errors"
	"vendora/pkg/logger"
)

type firestoreMessagingRepository struct {
	client *firestore.Client
}

func NewFirestoreMessagingRepository(client *firestore.Client) repository.MessagingRepository {
	return &firestoreMessagingRepository{
		client: client,
	}
}

func (r *firestoreMessagingRepository) SubscribeConversations(ctx context.Context, userID string) (<-chan repository.ConversationEvent, repository.CancelFunc, error) {
	if userID == "" {
		return nil, nil, errors.BadRequest("User id is required for a conversation subscription", nil)
	}

	ctx, cancelCtx := context.WithCancel(ctx)
	query := r.client.Collection("conversations").Where("participants", "array-contains", userID)
	snapshots := query.Snapshots(ctx)

	events := make(chan repository.ConversationEvent, 1)

	go func() {
		defer close(events)
		for {
			snap, err := snapshots.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled || ctx.Err() != nil {
					return
				}
				deliverConversationEvent(ctx, events, repository.ConversationEvent{
					Err: errors.StreamError("Conversation subscription failed", err),
				})
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				deliverConversationEvent(ctx, events, repository.ConversationEvent{
					Err: errors.StreamError("Failed to read conversation snapshot", err),
				})
				return
			}

			conversations := make([]*entity.Conversation, 0, len(docs))
			for _, doc := range docs {
				var conversation entity.Conversation
				if err := doc.DataTo(&conversation); err != nil {
					logger.Warn("Skipping malformed conversation %s: %v", doc.Ref.ID, err)
					continue
				}
				if conversation.ID == "" {
					conversation.ID = doc.Ref.ID
				}
				conversations = append(conversations, &conversation)
			}

			if !deliverConversationEvent(ctx, events, repository.ConversationEvent{Conversations: conversations}) {
				return
			}
		}
	}()

	cancel := func() {
		cancelCtx()
		snapshots.Stop()
	}
	return events, cancel, nil
}

func (r *firestoreMessagingRepository) SubscribeMessages(ctx context.Context, conversationID string) (<-chan repository.MessageEvent, repository.CancelFunc, error) {
	if conversationID == "" {
		return nil, nil, errors.BadRequest("Conversation id is required for a message subscription", nil)
	}

	ctx, cancelCtx := context.WithCancel(ctx)
	query := r.client.Collection("conversations").Doc(conversationID).
		Collection("messages").OrderBy("timestamp", firestore.Asc)
	snapshots := query.Snapshots(ctx)

	events := make(chan repository.MessageEvent, 1)

	go func() {
		defer close(events)
		for {
			snap, err := snapshots.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled || ctx.Err() != nil {
					return
				}
				deliverMessageEvent(ctx, events, repository.MessageEvent{
					Err: errors.StreamError("Message subscription failed", err),
				})
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				deliverMessageEvent(ctx, events, repository.MessageEvent{
					Err: errors.StreamError("Failed to read message snapshot", err),
				})
				return
			}

			messages := make([]*entity.Message, 0, len(docs))
			for _, doc := range docs {
				var message entity.Message
				if err := doc.DataTo(&message); err != nil {
					logger.Warn("Skipping malformed message %s in conversation %s: %v", doc.Ref.ID, conversationID, err)
					continue
				}
				if message.ID == "" {
					message.ID = doc.Ref.ID
				}
				messages = append(messages, &message)
			}

			if !deliverMessageEvent(ctx, events, repository.MessageEvent{Messages: messages}) {
				return
			}
		}
	}()

	cancel := func() {
		cancelCtx()
		snapshots.Stop()
	}
	return events, cancel, nil
}

// SendMessage appends the message and updates the conversation document in
// one transaction. A conversation that only existed client-side is
// materialized here under its deterministic id, so the sender's next
// conversation snapshot supersedes the ephemeral value without an id change.
func (r *firestoreMessagingRepository) SendMessage(ctx context.Context, conv *entity.Conversation, msg *entity.Message) (*entity.Message, error) {
	if conv == nil || conv.ID == "" {
		return nil, errors.BadRequest("Conversation is required to send a message", nil)
	}
	if msg.SenderID == "" || msg.ReceiverID == "" {
		return nil, errors.InvalidParticipant("message requires a sender and a receiver")
	}

	persisted := *msg
	if persisted.ID == "" {
		persisted.ID = uuid.New().String()
	}
	if persisted.Timestamp.IsZero() {
		persisted.Timestamp = time.Now()
	}

	convRef := r.client.Collection("conversations").Doc(conv.ID)
	msgRef := convRef.Collection("messages").Doc(persisted.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var stored entity.Conversation

		doc, err := tx.Get(convRef)
		switch {
		case err == nil:
			if err := doc.DataTo(&stored); err != nil {
				return errors.Internal("Failed to parse conversation data", err)
			}
			if stored.ID == "" {
				stored.ID = conv.ID
			}
		case status.Code(err) == codes.NotFound:
			now := time.Now()
			stored = entity.Conversation{
				ID:           conv.ID,
				Participants: conv.Participants,
				Type:         conv.Type,
				ContextID:    conv.ContextID,
				PartnerName:  conv.PartnerName,
				UnreadCounts: make(map[string]int),
				CreatedAt:    now,
			}
		default:
			return errors.Internal("Failed to get conversation", err)
		}

		if stored.UnreadCounts == nil {
			stored.UnreadCounts = make(map[string]int)
		}
		ts := persisted.Timestamp
		stored.LastMessage = persisted.Text
		stored.LastMessageTimestamp = &ts
		stored.UpdatedAt = time.Now()
		stored.UnreadCounts[persisted.ReceiverID]++

		if err := tx.Set(convRef, &stored); err != nil {
			return errors.Internal("Failed to update conversation", err)
		}
		return tx.Set(msgRef, &persisted)
	})
	if err != nil {
		return nil, sendFailure(err)
	}

	return &persisted, nil
}

// sendFailure keeps an error that already carries a code instead of burying
// it under a second wrap.
func sendFailure(err error) error {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr
	}
	return errors.Internal("Failed to send message", err)
}

// MarkConversationRead flags the user's unread messages and zeroes their
// unread counter. Idempotent: a second call finds nothing unread and the
// counter write is a no-op. A conversation that was never persisted is
// silently skipped.
func (r *firestoreMessagingRepository) MarkConversationRead(ctx context.Context, conversationID, userID string) error {
	if conversationID == "" || userID == "" {
		return errors.BadRequest("Conversation id and user id are required", nil)
	}

	convRef := r.client.Collection("conversations").Doc(conversationID)
	now := time.Now()

	iter := convRef.Collection("messages").
		Where("receiverId", "==", userID).
		Where("isRead", "==", false).
		Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.Internal("Failed to iterate unread messages", err)
		}
		if _, err := doc.Ref.Update(ctx, []firestore.Update{
			{Path: "isRead", Value: true},
			{Path: "readAt", Value: now},
		}); err != nil {
			return errors.Internal("Failed to update message read state", err)
		}
	}

	if _, err := convRef.Update(ctx, []firestore.Update{
		{Path: "unreadCounts." + userID, Value: 0},
	}); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return errors.Internal("Failed to clear unread counter", err)
	}
	return nil
}

func deliverConversationEvent(ctx context.Context, events chan<- repository.ConversationEvent, ev repository.ConversationEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func deliverMessageEvent(ctx context.Context, events chan<- repository.MessageEvent, ev repository.MessageEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
