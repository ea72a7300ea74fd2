package usecase

import (
	"context"
	"sort"
	"sync"

	"vendora/internal/domain/entity"
	"vendora/internal/domain/repository"
)

// ConversationStream wraps the repository's conversation subscription and
// re-delivers the complete, ordered list on every change. Deliveries are
// ordered most-recently-active first; conversations that never had a message
// sort last.
//
// Cancellation is synchronous: once Detach returns, neither callback fires
// again. Callbacks must not call back into Attach/Detach of the same stream.
type ConversationStream struct {
	repo repository.MessagingRepository

	mu     sync.Mutex
	gen    uint64
	cancel repository.CancelFunc
}

func NewConversationStream(repo repository.MessagingRepository) *ConversationStream {
	return &ConversationStream{repo: repo}
}

// Attach subscribes for userID, detaching any prior subscription first.
// deliver receives every snapshot, including the empty one; fail receives
// transport errors without terminating the subscription state.
func (s *ConversationStream) Attach(ctx context.Context, userID string, deliver func([]*entity.Conversation), fail func(error)) error {
	events, cancel, err := s.repo.SubscribeConversations(ctx, userID)
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
			} else {
				deliver(sortConversations(ev.Conversations))
			}
			s.mu.Unlock()
		}
	}()

	return nil
}

// Detach cancels the current subscription. Safe to call when nothing is
// attached, and safe to Attach again afterwards.
func (s *ConversationStream) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked()
}

func (s *ConversationStream) detachLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	// Deliveries already dequeued but not yet forwarded become stale.
	s.gen++
}

func sortConversations(conversations []*entity.Conversation) []*entity.Conversation {
	sorted := make([]*entity.Conversation, len(conversations))
	copy(sorted, conversations)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].LastMessageTimestamp, sorted[j].LastMessageTimestamp
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})

	return sorted
}
