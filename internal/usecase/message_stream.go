package usecase

import (
	"context"
	"sort"
	"sync"

	"vendora/internal/domain/entity"
	"vendora/internal/domain/repository"
	"vendora/pkg/logger"
)

// MessageStream wraps the repository's per-conversation message subscription.
// Every delivery carries the complete history sorted ascending by timestamp,
// with each message's ReadStatus evaluated for the viewing user.
//
// As a side effect, every non-empty delivery issues a mark-as-read command
// for the (conversation, viewer) pair. The command is best-effort and
// idempotent; failures are logged, never surfaced. The trigger intentionally
// fires even for batches with nothing unread.
type MessageStream struct {
	repo repository.MessagingRepository

	mu     sync.Mutex
	gen    uint64
	cancel repository.CancelFunc
}

func NewMessageStream(repo repository.MessagingRepository) *MessageStream {
	return &MessageStream{repo: repo}
}

// Attach subscribes to conversationID for viewerID. Any prior subscription is
// fully detached first; one MessageStream never feeds two conversations at
// once, even transiently.
func (s *MessageStream) Attach(ctx context.Context, conversationID, viewerID string, deliver func([]*entity.Message), fail func(error)) error {
	events, cancel, err := s.repo.SubscribeMessages(ctx, conversationID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.detachLocked()
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		for ev := range events {
			s.mu.Lock()
			if s.gen != gen {
				s.mu.Unlock()
				return
			}
			if ev.Err != nil {
				fail(ev.Err)
				s.mu.Unlock()
				continue
			}

			messages := sortMessages(ev.Messages)
			for _, m := range messages {
				m.ReadStatus = entity.EvaluateReceipt(m, viewerID)
			}
			deliver(messages)
			s.mu.Unlock()

			if len(messages) > 0 {
				go s.markRead(ctx, conversationID, viewerID)
			}
		}
	}()

	return nil
}

// Detach cancels the current subscription; after it returns no callback from
// that subscription fires again.
func (s *MessageStream) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked()
}

func (s *MessageStream) detachLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

func (s *MessageStream) markRead(ctx context.Context, conversationID, viewerID string) {
	if err := s.repo.MarkConversationRead(ctx, conversationID, viewerID); err != nil {
		logger.Warn("mark-as-read failed for conversation %s, user %s: %v", conversationID, viewerID, err)
	}
}

// sortMessages orders ascending by timestamp; ties keep arrival order.
func sortMessages(messages []*entity.Message) []*entity.Message {
	sorted := make([]*entity.Message, len(messages))
	copy(sorted, messages)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	return sorted
}
