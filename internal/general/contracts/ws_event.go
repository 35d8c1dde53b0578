package contracts

// WSAuthMessage is the first frame a client must send on a WebSocket.
type WSAuthMessage struct {
	Type  string `json:"type"` // "auth"
	Token string `json:"token"`
}

// WSChatMessage pushes one message to a conversation socket.
type WSChatMessage struct {
	Type    string      `json:"type"` // "message"
	Message ChatMessage `json:"message"`
}

// WSResync tells the client its live stream was lost and it must reload history.
type WSResync struct {
	Type           string `json:"type"` // "resync"
	ConversationID string `json:"conversation_id"`
	AfterSeq       int64  `json:"after_seq"`
	Reason         string `json:"reason,omitempty"`
}

// WSError reports a protocol problem before the socket is closed.
type WSError struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}
