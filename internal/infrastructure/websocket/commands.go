package websocket

import (
	"encoding/json"

	"vendora/pkg/errors"
	"vendora/pkg/logger"
)

// Inbound command actions.
const (
	ActionPing       = "ping"
	ActionSelect     = "select_conversation"
	ActionOpenVendor = "open_vendor"
	ActionSend       = "send_message"
	ActionBack       = "back"
)

type Command struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversation_id,omitempty"`
	VendorID       string `json:"vendor_id,omitempty"`
	Text           string `json:"text,omitempty"`
}

func (c *Client) handleCommand(raw []byte) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		logger.Warn("Client %s sent an unparsable command: %v", c.UserID, err)
		c.push(marshalErrorFrame(errors.BadRequest("Invalid command format", err)))
		return
	}

	switch cmd.Action {
	case ActionPing:
		c.push(marshalPongFrame())

	case ActionSelect:
		if err := c.Session.SelectConversation(c.ctx, cmd.ConversationID); err != nil {
			c.push(marshalErrorFrame(err))
		}

	case ActionOpenVendor:
		// Resolution waits for the first conversation snapshot; run it off
		// the read loop so other commands keep flowing.
		go func() {
			if err := c.Session.OpenVendor(c.ctx, cmd.VendorID); err != nil {
				c.push(marshalErrorFrame(err))
			}
		}()

	case ActionSend:
		if err := c.Session.SendMessage(c.ctx, cmd.Text); err != nil {
			c.push(marshalErrorFrame(err))
		}

	case ActionBack:
		c.Session.GoBack()

	default:
		logger.Warn("Client %s sent unknown action %q", c.UserID, cmd.Action)
		c.push(marshalErrorFrame(errors.BadRequest("Unknown action", nil)))
	}
}
