package contracts

// Exchanges
const (
	ExchangeDispatchTopic = "dispatch_topic"
)

// Durable queues for downstream consumers of status changes
const (
	QueueBookingStatus = "dispatch.booking_status"
	QueueShiftStatus   = "dispatch.shift_status"
)

// Routing patterns
const (
	RouteBookingStatusPrefix = "booking.status." // {status}
	RouteShiftStatusPrefix   = "shift.status."   // {status}
	RouteConversationPrefix  = "conversation."   // {conversation_id}.message
	RouteConversationSuffix  = ".message"
)

// ConversationRoute is the routing key for new messages of a conversation.
func ConversationRoute(conversationID string) string {
	return RouteConversationPrefix + conversationID + RouteConversationSuffix
}
