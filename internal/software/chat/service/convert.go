package service

import (
	"github.com/google/uuid"

	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/ports"
)

func generateCorrelationID() string {
	return "req_" + uuid.NewString()
}

func toRef(p chat.Participant) contracts.ParticipantRef {
	return contracts.ParticipantRef{Type: p.Kind.String(), ID: p.ID}
}

func toConversationView(c chat.Conversation) ports.ConversationView {
	return ports.ConversationView{
		ConversationID: c.ID,
		CompanyID:      c.CompanyID,
		Participants:   []contracts.ParticipantRef{toRef(c.Participant1), toRef(c.Participant2)},
		BookingID:      c.BookingID,
		LastSeq:        c.LastSeq,
		CreatedAt:      c.CreatedAt,
	}
}

func toWire(m chat.Message) contracts.ChatMessage {
	out := contracts.ChatMessage{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		Seq:            m.Seq,
		Sender:         toRef(m.Sender),
		CreatedAt:      m.CreatedAt,
		ReadAt:         m.ReadAt,
	}

	out.Body.Type = string(m.Body.Kind())
	switch b := m.Body.(type) {
	case chat.Text:
		out.Body.Text = b.Text
	case chat.Image:
		out.Body.Caption = b.Caption
	}
	if a, ok := chat.AttachmentOf(m.Body); ok {
		out.Body.Attachment = &contracts.Attachment{
			URL:         a.URL,
			Name:        a.Name,
			ContentType: a.ContentType,
			SizeBytes:   a.SizeBytes,
		}
	}
	return out
}

func toWireAll(msgs []chat.Message) []contracts.ChatMessage {
	out := make([]contracts.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toWire(m))
	}
	return out
}
