package contracts

import "time"

// Attachment is the wire form of an uploaded blob.
type Attachment struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// MessageBody is the tagged body of a chat message.
type MessageBody struct {
	Type       string      `json:"type"` // text|file|image|audio
	Text       string      `json:"text,omitempty"`
	Caption    string      `json:"caption,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// ChatMessage is a stored message as returned by the API and pushed to watchers.
type ChatMessage struct {
	MessageID      string         `json:"message_id"`
	ConversationID string         `json:"conversation_id"`
	Seq            int64          `json:"seq"`
	Sender         ParticipantRef `json:"sender"`
	Body           MessageBody    `json:"body"`
	CreatedAt      time.Time      `json:"created_at"`
	ReadAt         *time.Time     `json:"read_at,omitempty"`
}

// ConversationMessageEvent is published when a message is appended.
// Routing key: "conversation.{conversation_id}.message" on ExchangeDispatchTopic.
type ConversationMessageEvent struct {
	Message ChatMessage `json:"message"`
	Envelope
}
