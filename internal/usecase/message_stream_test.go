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
)

type messageRecorder struct {
	mu        sync.Mutex
	delivered [][]*entity.Message
	failed    []error
}

func (r *messageRecorder) deliver(messages []*entity.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, messages)
}

func (r *messageRecorder) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, err)
}

func (r *messageRecorder) deliveries() [][]*entity.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]*entity.Message(nil), r.delivered...)
}

func TestMessageStreamSortsAscending(t *testing.T) {
	repo := newFakeMessagingRepo()
	stream := NewMessageStream(repo)
	rec := &messageRecorder{}

	require.NoError(t, stream.Attach(context.Background(), "c1", "alice", rec.deliver, rec.fail))
	defer stream.Detach()

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo.pushMessages("c1", repository.MessageEvent{Messages: []*entity.Message{
		{ID: "m3", SenderID: "bob", Timestamp: base.Add(2 * time.Minute)},
		{ID: "m1", SenderID: "alice", Timestamp: base},
		{ID: "m2", SenderID: "bob", Timestamp: base.Add(time.Minute)},
	}})

	require.Eventually(t, func() bool { return len(rec.deliveries()) == 1 }, time.Second, 10*time.Millisecond)

	got := rec.deliveries()[0]
	require.Len(t, got, 3)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "m2", got[1].ID)
	assert.Equal(t, "m3", got[2].ID)
}

func TestMessageStreamTimestampTiesKeepArrivalOrder(t *testing.T) {
	repo := newFakeMessagingRepo()
	stream := NewMessageStream(repo)
	rec := &messageRecorder{}

	require.NoError(t, stream.Attach(context.Background(), "c1", "alice", rec.deliver, rec.fail))
	defer stream.Detach()

	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo.pushMessages("c1", repository.MessageEvent{Messages: []*entity.Message{
		{ID: "first", Timestamp: at},
		{ID: "second", Timestamp: at},
	}})

	require.Eventually(t, func() bool { return len(rec.deliveries()) == 1 }, time.Second, 10*time.Millisecond)

	got := rec.deliveries()[0]
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
}

func TestMessageStreamPopulatesReceipts(t *testing.T) {
	repo := newFakeMessagingRepo()
	stream := NewMessageStream(repo)
	rec := &messageRecorder{}

	require.NoError(t, stream.Attach(context.Background(), "c1", "alice", rec.deliver, rec.fail))
	defer stream.Detach()

	repo.pushMessages("c1", repository.MessageEvent{Messages: []*entity.Message{
		{ID: "mine", SenderID: "alice", ReceiverID: "bob", IsRead: true},
		{ID: "theirs", SenderID: "bob", ReceiverID: "alice"},
	}})

	require.Eventually(t, func() bool { return len(rec.deliveries()) == 1 }, time.Second, 10*time.Millisecond)

	for _, m := range rec.deliveries()[0] {
		switch m.ID {
		case "mine":
			require.NotNil(t, m.ReadStatus)
			assert.Equal(t, entity.ReceiptRead, m.ReadStatus.Status)
		case "theirs":
			assert.Nil(t, m.ReadStatus)
		}
	}
}

func TestMessageStreamMarksReadOnNonEmptyBatch(t *testing.T) {
	repo := newFakeMessagingRepo()
	stream := NewMessageStream(repo)
	rec := &messageRecorder{}

	require.NoError(t, stream.Attach(context.Background(), "c1", "alice", rec.deliver, rec.fail))
	defer stream.Detach()

	repo.pushMessages("c1", repository.MessageEvent{Messages: []*entity.Message{{ID: "m1", SenderID: "bob"}}})

	require.Eventually(t, func() bool { return len(repo.markReadCalls()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, markCall{conversationID: "c1", userID: "alice"}, repo.markReadCalls()[0])

	// The trigger fires per delivered batch, including ones with nothing
	// unread; marking again must be harmless.
	repo.pushMessages("c1", repository.MessageEvent{Messages: []*entity.Message{{ID: "m1", SenderID: "bob", IsRead: true}}})
	require.Eventually(t, func() bool { return len(repo.markReadCalls()) == 2 }, time.Second, 10*time.Millisecond)
}

func TestMessageStreamSkipsMarkReadOnEmptyBatch(t *testing.T) {
	repo := newFakeMessagingRepo()
	stream := NewMessageStream(repo)
	rec := &messageRecorder{}

	require.NoError(t, stream.Attach(context.Background(), "c1", "alice", rec.deliver, rec.fail))
	defer stream.Detach()

	repo.pushMessages("c1", repository.MessageEvent{Messages: nil})

	require.Eventually(t, func() bool { return len(rec.deliveries()) == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, repo.markReadCalls())
}

func TestMessageStreamDetachStopsDelivery(t *testing.T) {
	repo := newFakeMessagingRepo()
	stream := NewMessageStream(repo)
	rec := &messageRecorder{}

	require.NoError(t, stream.Attach(context.Background(), "c1", "alice", rec.deliver, rec.fail))
	stream.Detach()

	repo.pushMessages("c1", repository.MessageEvent{Messages: []*entity.Message{{ID: "late"}}})

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.deliveries())
}
