package entity

import "time"

// MaxMessageLength bounds message text at the send boundary, counted in
// characters, not bytes.
const MaxMessageLength = 1000

type Message struct {
	ID         string     `json:"id,omitempty" firestore:"id,omitempty"`
	TempID     string     `json:"temp_id,omitempty" firestore:"tempId,omitempty"`
	SenderID   string     `json:"sender_id" firestore:"senderId"`
	ReceiverID string     `json:"receiver_id" firestore:"receiverId"`
	Text       string     `json:"text" firestore:"text"`
	Timestamp  time.Time  `json:"timestamp" firestore:"timestamp"`
	IsRead     bool       `json:"is_read" firestore:"isRead"`
	ReadAt     *time.Time `json:"read_at,omitempty" firestore:"readAt,omitempty"`

	// ReadStatus is derived per viewer via EvaluateReceipt, never stored.
	ReadStatus *ReadReceipt `json:"read_status,omitempty" firestore:"-"`
}

// Key returns the sole render/ordering key: the persisted id once assigned,
// the client-side temp id before that.
func (m *Message) Key() string {
	if m.ID != "" {
		return m.ID
	}
	return m.TempID
}

type ReceiptStatus string

const (
	ReceiptDelivered ReceiptStatus = "delivered"
	ReceiptRead      ReceiptStatus = "read"
)

// ReadReceipt is the sender-only view of whether and when the recipient has
// seen a message.
type ReadReceipt struct {
	Status ReceiptStatus `json:"status"`
	ReadAt *time.Time    `json:"read_at,omitempty"`
}

// EvaluateReceipt computes the receipt a viewer should see for a message.
// Receipts are shown only to the sender; everyone else gets nil.
func EvaluateReceipt(m *Message, viewerID string) *ReadReceipt {
	if m == nil || viewerID == "" || viewerID != m.SenderID {
		return nil
	}
	if !m.IsRead {
		return &ReadReceipt{Status: ReceiptDelivered}
	}
	return &ReadReceipt{Status: ReceiptRead, ReadAt: m.ReadAt}
}

// Label renders the receipt for display: "Delivered", "Read", or "Read" plus
// the formatted read time when one is recorded.
func (r *ReadReceipt) Label(now time.Time) string {
	if r == nil {
		return ""
	}
	if r.Status == ReceiptDelivered {
		return "Delivered"
	}
	if r.ReadAt == nil {
		return "Read"
	}
	return "Read " + FormatTimestamp(*r.ReadAt, now)
}

// FormatTimestamp renders a message or preview time relative to now:
// same calendar day shows the time only, the previous day is prefixed with
// "Yesterday", the same year drops the year, anything older shows the full
// date. A zero time renders as "Invalid time" rather than panicking.
func FormatTimestamp(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "Invalid time"
	}
	t = t.In(now.Location())

	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty == ny && tm == nm && td == nd {
		return t.Format("15:04")
	}

	yy, ym, yd := now.AddDate(0, 0, -1).Date()
	if ty == yy && tm == ym && td == yd {
		return "Yesterday " + t.Format("15:04")
	}

	if ty == ny {
		return t.Format("Jan 2 15:04")
	}
	return t.Format("Jan 2 2006 15:04")
}
