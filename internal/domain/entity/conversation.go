package entity

import (
	"fmt"
	"time"

	"vendora/pkg/errors"
)

type ConversationType string

const (
	ConversationUserVendor  ConversationType = "user-vendor"
	ConversationAdminUser   ConversationType = "admin-user"
	ConversationAdminVendor ConversationType = "admin-vendor"
)

// TypeDisplay carries the presentation metadata attached to a conversation
// type. It drives labels and styling only, never protocol behavior.
type TypeDisplay struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func (t ConversationType) Display() TypeDisplay {
	switch t {
	case ConversationAdminUser:
		return TypeDisplay{Label: "Support", Icon: "shield", Color: "#6B21A8"}
	case ConversationAdminVendor:
		return TypeDisplay{Label: "Vendor Support", Icon: "store-check", Color: "#9A3412"}
	default:
		return TypeDisplay{Label: "Vendor", Icon: "store", Color: "#1D4ED8"}
	}
}

type Conversation struct {
	ID                   string           `json:"id" firestore:"id"`
	Participants         []string         `json:"participants" firestore:"participants"`
	Type                 ConversationType `json:"type" firestore:"type"`
	ContextID            string           `json:"context_id,omitempty" firestore:"contextId,omitempty"`
	PartnerName          string           `json:"partner_name,omitempty" firestore:"partnerName,omitempty"`
	LastMessage          string           `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageTimestamp *time.Time       `json:"last_message_timestamp,omitempty" firestore:"lastMessageTimestamp,omitempty"`
	UnreadCounts         map[string]int   `json:"unread_counts" firestore:"unreadCounts"`
	CreatedAt            time.Time        `json:"created_at" firestore:"createdAt"`
	UpdatedAt            time.Time        `json:"updated_at" firestore:"updatedAt"`

	// Ephemeral conversations exist only client-side: synthesized for a
	// deep-link target before any message has been persisted under their id.
	// The first send materializes the backend document under the same id.
	Ephemeral bool `json:"ephemeral,omitempty" firestore:"-"`
}

// ConversationKey derives the canonical id for a two-party, context-scoped
// thread. Participant order does not matter; the ids are sorted before
// concatenation so both sides derive the same key. The type tag and context
// id are embedded so the key is self-describing without a lookup.
func ConversationKey(a, b string, convType ConversationType, contextID string) (string, error) {
	if a == "" || b == "" {
		return "", errors.InvalidParticipant("conversation requires two resolved participant ids")
	}
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("%s_%s_%s_%s", convType, contextID, lo, hi), nil
}

// Partner returns the participant that is not the viewer, or "" if the
// viewer is not a participant.
func (c *Conversation) Partner(viewerID string) string {
	for _, p := range c.Participants {
		if p != viewerID {
			return p
		}
	}
	return ""
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// UnreadFor reads the backend-owned unread counter for a user. This layer
// never computes the counter locally; it only triggers recomputation by
// issuing a mark-as-read command.
func (c *Conversation) UnreadFor(userID string) int {
	if c.UnreadCounts == nil {
		return 0
	}
	return c.UnreadCounts[userID]
}

// HasHistory reports whether the conversation has a backing message stream.
// Ephemeral conversations accept sends but have no history yet.
func (c *Conversation) HasHistory() bool {
	return !c.Ephemeral
}
