package usecase

import (
	"context"
	"sync"

	"vendora/internal/domain/entity"
	"vendora/internal/domain/repository"
	"vendora/pkg/errors"
)

// fakeMessagingRepo hands out controllable event channels so tests can drive
// deliveries by hand. Cancel marks the subscription canceled but leaves the
// channel open, letting tests simulate late deliveries from a network
// response that arrives after the caller moved on.
type fakeMessagingRepo struct {
	mu sync.Mutex

	convChans   []chan repository.ConversationEvent
	convCancels int

	msgChans        map[string][]chan repository.MessageEvent
	msgCancels      map[string]int
	subscribeMsgErr error

	sendErr error
	sent    []sentMessage

	markCalls []markCall
}

type sentMessage struct {
	conv *entity.Conversation
	msg  *entity.Message
}

type markCall struct {
	conversationID string
	userID         string
}

func newFakeMessagingRepo() *fakeMessagingRepo {
	return &fakeMessagingRepo{
		msgChans:   make(map[string][]chan repository.MessageEvent),
		msgCancels: make(map[string]int),
	}
}

func (f *fakeMessagingRepo) SubscribeConversations(ctx context.Context, userID string) (<-chan repository.ConversationEvent, repository.CancelFunc, error) {
	ch := make(chan repository.ConversationEvent, 16)
	f.mu.Lock()
	f.convChans = append(f.convChans, ch)
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		f.convCancels++
		f.mu.Unlock()
	}
	return ch, cancel, nil
}

func (f *fakeMessagingRepo) SubscribeMessages(ctx context.Context, conversationID string) (<-chan repository.MessageEvent, repository.CancelFunc, error) {
	ch := make(chan repository.MessageEvent, 16)
	f.mu.Lock()
	if err := f.subscribeMsgErr; err != nil {
		f.mu.Unlock()
		return nil, nil, err
	}
	f.msgChans[conversationID] = append(f.msgChans[conversationID], ch)
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		f.msgCancels[conversationID]++
		f.mu.Unlock()
	}
	return ch, cancel, nil
}

func (f *fakeMessagingRepo) SendMessage(ctx context.Context, conv *entity.Conversation, msg *entity.Message) (*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, sentMessage{conv: conv, msg: msg})
	return msg, nil
}

func (f *fakeMessagingRepo) MarkConversationRead(ctx context.Context, conversationID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls = append(f.markCalls, markCall{conversationID: conversationID, userID: userID})
	return nil
}

func (f *fakeMessagingRepo) pushConversations(ev repository.ConversationEvent) {
	f.mu.Lock()
	ch := f.convChans[len(f.convChans)-1]
	f.mu.Unlock()
	ch <- ev
}

func (f *fakeMessagingRepo) pushMessages(conversationID string, ev repository.MessageEvent) {
	f.mu.Lock()
	chans := f.msgChans[conversationID]
	ch := chans[len(chans)-1]
	f.mu.Unlock()
	ch <- ev
}

func (f *fakeMessagingRepo) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeMessagingRepo) markReadCalls() []markCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]markCall(nil), f.markCalls...)
}

func (f *fakeMessagingRepo) messageSubscriptions(conversationID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgChans[conversationID])
}

type fakeVendorRepo struct {
	mu      sync.Mutex
	vendors map[string]*entity.Vendor
	calls   int
}

func newFakeVendorRepo(vendors ...*entity.Vendor) *fakeVendorRepo {
	byID := make(map[string]*entity.Vendor)
	for _, v := range vendors {
		byID[v.ID] = v
	}
	return &fakeVendorRepo{vendors: byID}
}

func (f *fakeVendorRepo) GetByID(ctx context.Context, vendorID string) (*entity.Vendor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	vendor, ok := f.vendors[vendorID]
	if !ok {
		return nil, errors.NotFound("Vendor", nil)
	}
	return vendor, nil
}

func (f *fakeVendorRepo) add(vendor *entity.Vendor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vendors[vendor.ID] = vendor
}

func (f *fakeVendorRepo) lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotificationRepo struct {
	mu      sync.Mutex
	entries []*entity.Notification
}

func (f *fakeNotificationRepo) Create(ctx context.Context, notification *entity.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, notification)
	return nil
}

func (f *fakeNotificationRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]*entity.Notification, error) {
	return nil, nil
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id string) (*entity.Notification, error) {
	return nil, errors.NotFound("Notification", nil)
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id string) error { return nil }

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID string) error { return nil }

func (f *fakeNotificationRepo) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeNotificationRepo) created() []*entity.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*entity.Notification(nil), f.entries...)
}

// recordingSink captures everything the session pushes at the presentation
// layer.
type recordingSink struct {
	mu          sync.Mutex
	convBatches [][]*entity.Conversation
	msgBatches  []deliveredBatch
	failures    []error
}

type deliveredBatch struct {
	conversationID string
	messages       []*entity.Message
}

func (s *recordingSink) ConversationsUpdated(conversations []*entity.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convBatches = append(s.convBatches, conversations)
}

func (s *recordingSink) MessagesUpdated(conversationID string, messages []*entity.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgBatches = append(s.msgBatches, deliveredBatch{conversationID: conversationID, messages: messages})
}

func (s *recordingSink) StreamFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, err)
}

func (s *recordingSink) conversationBatches() [][]*entity.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]*entity.Conversation(nil), s.convBatches...)
}

func (s *recordingSink) messageBatches() []deliveredBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]deliveredBatch(nil), s.msgBatches...)
}

func (s *recordingSink) streamFailures() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.failures...)
}
