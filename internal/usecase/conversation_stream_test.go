package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendora/internal/domain/entity"
	"vendora/internal/domain/repository"
	"vendora/pkg/errors"
)

type streamRecorder struct {
	mu        sync.Mutex
	delivered [][]*entity.Conversation
	failed    []error
}

func (r *streamRecorder) deliver(conversations []*entity.Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, conversations)
}

func (r *streamRecorder) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, err)
}

func (r *streamRecorder) deliveries() [][]*entity.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]*entity.Conversation(nil), r.delivered...)
}

func (r *streamRecorder) failures() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.failed...)
}

func ts(t time.Time) *time.Time { return &t }

func TestConversationStreamOrdersMostRecentFirst(t *testing.T) {
	repo := newFakeMessagingRepo()
	stream := NewConversationStream(repo)
	rec := &streamRecorder{}

	require.NoError(t, stream.Attach(context.Background(), "alice", rec.deliver, rec.fail))
	defer stream.Detach()

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo.pushConversations(repository.ConversationEvent{Conversations: []*entity.Conversation{
		{ID: "old", LastMessageTimestamp: ts(base.Add(-time.Hour))},
		{ID: "never", LastMessageTimestamp: nil},
		{ID: "new", LastMessageTimestamp: ts(base)},
	}})

	require.Eventually(t, func() bool { return len(rec.deliveries()) == 1 }, time.Second, 10*time.Millisecond)

	got := rec.deliveries()[0]
	require.Len(t, got, 3)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", got[1].ID)
	assert.Equal(t, "never", got[2].ID)
}

func TestConversationStreamDeliversEmptySnapshot(t *testing.T) {
	repo := newFakeMessagingRepo()
	stream := NewConversationStream(repo)
	rec := &streamRecorder{}

	require.NoError(t, stream.Attach(context.Background(), "alice", rec.deliver, rec.fail))
	defer stream.Detach()

	repo.pushConversations(repository.ConversationEvent{Conversations: nil})

	require.Eventually(t, func() bool { return len(rec.deliveries()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Empty(t, rec.deliveries()[0])
	assert.Empty(t, rec.failures())
}

func TestConversationStreamSurfacesErrorsWithoutTerminating(t *testing.T) {
	repo := newFakeMessagingRepo()
	stream := NewConversationStream(repo)
	rec := &streamRecorder{}

	require.NoError(t, stream.Attach(context.Background(), "alice", rec.deliver, rec.fail))
	defer stream.Detach()

	repo.pushConversations(repository.ConversationEvent{Err: errors.StreamError("listener dropped", nil)})
	repo.pushConversations(repository.ConversationEvent{Conversations: []*entity.Conversation{{ID: "c1"}}})

	require.Eventually(t, func() bool { return len(rec.deliveries()) == 1 }, time.Second, 10*time.Millisecond)
	require.Len(t, rec.failures(), 1)
	assert.True(t, errors.Is(rec.failures()[0], "STREAM_ERROR"))
}

func TestConversationStreamDetachStopsDelivery(t *testing.T) {
	repo := newFakeMessagingRepo()
	stream := NewConversationStream(repo)
	rec := &streamRecorder{}

	require.NoError(t, stream.Attach(context.Background(), "alice", rec.deliver, rec.fail))
	stream.Detach()

	repo.pushConversations(repository.ConversationEvent{Conversations: []*entity.Conversation{{ID: "late"}}})

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.deliveries())
}

func TestConversationStreamReattachAfterDetach(t *testing.T) {
	repo := newFakeMessagingRepo()
	stream := NewConversationStream(repo)
	rec := &streamRecorder{}

	require.NoError(t, stream.Attach(context.Background(), "alice", rec.deliver, rec.fail))
	stream.Detach()

	require.NoError(t, stream.Attach(context.Background(), "alice", rec.deliver, rec.fail))
	defer stream.Detach()

	repo.pushConversations(repository.ConversationEvent{Conversations: []*entity.Conversation{{ID: "fresh"}}})

	require.Eventually(t, func() bool { return len(rec.deliveries()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "fresh", rec.deliveries()[0][0].ID)
}
