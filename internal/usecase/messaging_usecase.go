package usecase

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"vendora/internal/domain/entity"
	"vendora/internal/domain/repository"
	"vendora/pkg/errors"
	"vendora/pkg/logger"
)

type SessionState string

const (
	SessionIdle      SessionState = "idle"
	SessionResolving SessionState = "resolving"
	SessionActive    SessionState = "active"
)

// SessionSink receives the session's view updates. Implemented by the
// presentation layer (the websocket bridge in this service).
type SessionSink interface {
	ConversationsUpdated(conversations []*entity.Conversation)
	MessagesUpdated(conversationID string, messages []*entity.Message)
	StreamFailed(err error)
}

type MessagingUseCase struct {
	repo             repository.MessagingRepository
	vendorRepo       repository.VendorRepository
	notificationRepo repository.NotificationRepository
}

func NewMessagingUseCase(repo repository.MessagingRepository, vendorRepo repository.VendorRepository, notificationRepo repository.NotificationRepository) *MessagingUseCase {
	return &MessagingUseCase{
		repo:             repo,
		vendorRepo:       vendorRepo,
		notificationRepo: notificationRepo,
	}
}

// NewSession builds the per-user messaging session. One session per connected
// user; the caller owns its lifecycle via Start/Close.
func (uc *MessagingUseCase) NewSession(userID string, sink SessionSink) *MessagingSession {
	return &MessagingSession{
		userID:           userID,
		repo:             uc.repo,
		vendorRepo:       uc.vendorRepo,
		notificationRepo: uc.notificationRepo,
		sink:             sink,
		convStream: NewConversationStream(uc.repo),
		msgStream:  NewMessageStream(uc.repo),
		state:      SessionIdle,
		ready:      make(chan struct{}),
		resolving:  make(map[string]bool),
	}
}

// MessagingSession orchestrates one user's conversation list and the single
// active-conversation slot. At most one message stream is attached at a time;
// switching always detaches before attaching. A generation counter tags every
// attach so a slow delivery for an abandoned conversation can never overwrite
// the current view.
type MessagingSession struct {
	userID           string
	repo             repository.MessagingRepository
	vendorRepo       repository.VendorRepository
	notificationRepo repository.NotificationRepository
	sink             SessionSink

	convStream *ConversationStream
	msgStream  *MessageStream

	mu            sync.Mutex
	state         SessionState
	active        *entity.Conversation
	conversations []*entity.Conversation
	gen           uint64
	resolving     map[string]bool // deep-link targets resolved (or in flight) this session

	ready     chan struct{} // closed once the first conversation snapshot lands
	readyOnce sync.Once
}

// Start attaches the conversation stream. The session stays subscribed until
// Close; ctx bounds the underlying listener.
func (s *MessagingSession) Start(ctx context.Context) error {
	return s.convStream.Attach(ctx, s.userID, s.onConversations, s.onStreamError)
}

// Close detaches both streams and clears the session. Safe from any state.
func (s *MessagingSession) Close() {
	s.GoBack()
	s.convStream.Detach()
}

func (s *MessagingSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *MessagingSession) Active() *entity.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *MessagingSession) Conversations() []*entity.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversations
}

func (s *MessagingSession) onConversations(conversations []*entity.Conversation) {
	s.mu.Lock()
	s.conversations = conversations
	if s.active != nil {
		for _, c := range conversations {
			if c.ID == s.active.ID {
				// The persisted conversation supersedes an ephemeral one
				// under the same id; the slot itself never changes.
				s.active = c
				break
			}
		}
	}
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })
	s.sink.ConversationsUpdated(conversations)
}

func (s *MessagingSession) onStreamError(err error) {
	logger.Error("messaging session for %s: stream failure: %v", s.userID, err)
	s.sink.StreamFailed(err)
}

// SelectConversation activates a conversation already present in the current
// snapshot. An empty or unknown id is a logged no-op.
func (s *MessagingSession) SelectConversation(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		logger.Warn("messaging session for %s: ignoring selection with empty conversation id", s.userID)
		return nil
	}

	s.mu.Lock()
	var target *entity.Conversation
	for _, c := range s.conversations {
		if c.ID == conversationID {
			target = c
			break
		}
	}
	s.mu.Unlock()

	if target == nil {
		logger.Warn("messaging session for %s: ignoring selection of unknown conversation %s", s.userID, conversationID)
		return nil
	}

	return s.activate(ctx, target)
}

// OpenVendor resolves a deep-link vendor target into a conversation: an
// existing user-vendor thread for that vendor if one is in the snapshot,
// otherwise an ephemeral conversation against the vendor's owning user.
// Resolution waits for the first conversation snapshot and runs at most once
// per distinct vendor per session.
func (s *MessagingSession) OpenVendor(ctx context.Context, vendorID string) error {
	if vendorID == "" {
		logger.Warn("messaging session for %s: ignoring deep link with empty vendor id", s.userID)
		return nil
	}

	s.mu.Lock()
	if s.resolving[vendorID] {
		s.mu.Unlock()
		return nil
	}
	s.resolving[vendorID] = true
	if s.state == SessionIdle {
		s.state = SessionResolving
	}
	s.mu.Unlock()

	// Never resolve against a partial or unknown conversation set.
	select {
	case <-s.ready:
	case <-ctx.Done():
		s.resolutionFailed(vendorID)
		return errors.StreamError("conversation snapshot unavailable", ctx.Err())
	}

	s.mu.Lock()
	var existing *entity.Conversation
	for _, c := range s.conversations {
		if c.Type == entity.ConversationUserVendor && c.ContextID == vendorID {
			existing = c
			break
		}
	}
	s.mu.Unlock()

	if existing != nil {
		if err := s.activate(ctx, existing); err != nil {
			s.resolutionFailed(vendorID)
			return err
		}
		return nil
	}

	vendor, err := s.vendorRepo.GetByID(ctx, vendorID)
	if err != nil {
		s.resolutionFailed(vendorID)
		return errors.VendorUnresolvable(vendorID, err)
	}
	if vendor.OwnerUserID == "" {
		s.resolutionFailed(vendorID)
		return errors.VendorUnresolvable(vendorID, nil)
	}

	key, err := entity.ConversationKey(s.userID, vendor.OwnerUserID, entity.ConversationUserVendor, vendorID)
	if err != nil {
		s.resolutionFailed(vendorID)
		return err
	}

	ephemeral := &entity.Conversation{
		ID:           key,
		Participants: []string{s.userID, vendor.OwnerUserID},
		Type:         entity.ConversationUserVendor,
		ContextID:    vendorID,
		PartnerName:  vendor.Name,
		UnreadCounts: map[string]int{s.userID: 0},
		Ephemeral:    true,
	}

	if err := s.activate(ctx, ephemeral); err != nil {
		s.resolutionFailed(vendorID)
		return err
	}
	return nil
}

func (s *MessagingSession) resolutionFailed(vendorID string) {
	s.mu.Lock()
	delete(s.resolving, vendorID)
	if s.state == SessionResolving {
		s.state = SessionIdle
	}
	s.mu.Unlock()
}

// activate makes conv the active conversation and attaches its message
// stream, detaching the previous one first. The bumped generation makes any
// in-flight delivery for the old conversation stale.
func (s *MessagingSession) activate(ctx context.Context, conv *entity.Conversation) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.active = conv
	s.state = SessionActive
	s.mu.Unlock()

	s.msgStream.Detach()

	// Ephemeral conversations subscribe too: the history is empty until the
	// first send materializes the document under the same id, at which point
	// messages flow in without a re-attach.
	err := s.msgStream.Attach(ctx, conv.ID,
		s.userID,
		func(messages []*entity.Message) { s.onMessages(gen, conv.ID, messages) },
		s.onStreamError,
	)
	if err != nil {
		// An Active session without a subscription would silently show a
		// frozen history. Roll back unless a newer activation already won.
		s.mu.Lock()
		if s.gen == gen {
			s.active = nil
			s.state = SessionIdle
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MessagingSession) onMessages(gen uint64, conversationID string, messages []*entity.Message) {
	s.mu.Lock()
	stale := s.gen != gen || s.active == nil || s.active.ID != conversationID
	s.mu.Unlock()
	if stale {
		return
	}
	s.sink.MessagesUpdated(conversationID, messages)
}

// SendMessage validates and submits text to the active conversation. A
// whitespace-only text is a silent no-op; over-length text is rejected at
// this boundary. A backend failure leaves the active conversation and the
// displayed history untouched; the stream is the sole source of truth.
func (s *MessagingSession) SendMessage(ctx context.Context, text string) error {
	s.mu.Lock()
	conv := s.active
	state := s.state
	s.mu.Unlock()

	if state != SessionActive || conv == nil {
		return errors.BadRequest("no active conversation to send to", nil)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		logger.Debug("messaging session for %s: ignoring empty send", s.userID)
		return nil
	}
	if utf8.RuneCountInString(text) > entity.MaxMessageLength {
		return errors.BadRequest("message exceeds the 1000 character limit", nil)
	}

	receiver := conv.Partner(s.userID)
	if receiver == "" {
		return errors.InvalidParticipant("active conversation has no counter-party")
	}

	msg := &entity.Message{
		TempID:     uuid.New().String(),
		SenderID:   s.userID,
		ReceiverID: receiver,
		Text:       text,
		Timestamp:  time.Now(),
	}

	if _, err := s.repo.SendMessage(ctx, conv, msg); err != nil {
		logger.Error("messaging session for %s: send to conversation %s failed: %v", s.userID, conv.ID, err)
		return errors.SendFailed("message could not be delivered", err)
	}

	go s.notifyReceiver(ctx, conv, msg)
	return nil
}

// notifyReceiver records a notification for the counter-party. Best-effort;
// delivery of the message itself already succeeded.
func (s *MessagingSession) notifyReceiver(ctx context.Context, conv *entity.Conversation, msg *entity.Message) {
	title := "New message"
	if conv.PartnerName != "" {
		title = "New message about " + conv.PartnerName
	}

	body := msg.Text
	if runes := []rune(body); len(runes) > 120 {
		body = string(runes[:120])
	}

	err := s.notificationRepo.Create(ctx, &entity.Notification{
		UserID: msg.ReceiverID,
		Title:  title,
		Body:   body,
		Type:   "message",
	})
	if err != nil {
		logger.Warn("messaging session for %s: notification for %s failed: %v", s.userID, msg.ReceiverID, err)
	}
}

// GoBack detaches the message stream and clears the active slot. Safe to
// call from any state, including Idle.
func (s *MessagingSession) GoBack() {
	s.mu.Lock()
	s.gen++
	s.active = nil
	s.state = SessionIdle
	s.mu.Unlock()

	s.msgStream.Detach()
}
