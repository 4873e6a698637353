package model

// SendMessagePayload is the body of a message:send event.
type SendMessagePayload struct {
	SenderID   string `json:"sender"`
	ReceiverID string `json:"receiver"`
	Text       string `json:"text"`
	ClientID   string `json:"clientId,omitempty"`
}

// MessageStatusUpdate - lightweight event for delivery confirmation
type MessageStatusUpdate struct {
	MessageID string        `json:"msgId"`
	Status    MessageStatus `json:"status"`
}

// MessageSeen - for read receipts
type MessageSeen struct {
	MessageID string `json:"msgId"`
	SeenBy    string `json:"readBy"`
	SeenAt    string `json:"readAt"`
}

// TypingIndicator - for typing status
type TypingIndicator struct {
	SenderID   string `json:"sender"`
	ReceiverID string `json:"receiver"`
}
