package chat

import (
	"fmt"
	"strings"
	"time"

	"ride-dispatch/internal/domain/apperr"
)

// Conversation is a durable two-party channel, optionally scoped to one booking.
// Participants are stored in canonical order.
type Conversation struct {
	ID           string
	CompanyID    string
	Participant1 Participant
	Participant2 Participant
	BookingID    *string
	LastSeq      int64
	CreatedAt    time.Time
}

// NewConversation validates and canonicalizes a conversation key.
func NewConversation(companyID string, p1, p2 Participant, bookingID *string, now time.Time) (*Conversation, error) {
	if companyID = strings.TrimSpace(companyID); companyID == "" {
		return nil, fmt.Errorf("%w: company id is required", apperr.ErrValidation)
	}
	if err := p1.Validate(); err != nil {
		return nil, err
	}
	if err := p2.Validate(); err != nil {
		return nil, err
	}
	if _, err := RelationshipOf(p1, p2); err != nil {
		return nil, err
	}

	if bookingID != nil {
		id := strings.TrimSpace(*bookingID)
		if id == "" {
			bookingID = nil
		} else {
			bookingID = &id
		}
	}

	a, b := Canonical(p1, p2)
	return &Conversation{
		CompanyID:    companyID,
		Participant1: a,
		Participant2: b,
		BookingID:    bookingID,
		CreatedAt:    now.UTC(),
	}, nil
}

// Relationship of the two participants; always valid for a stored conversation.
func (c *Conversation) Relationship() Relationship {
	r, _ := RelationshipOf(c.Participant1, c.Participant2)
	return r
}

// Has reports whether p is one of the two participants.
func (c *Conversation) Has(p Participant) bool {
	return c.Participant1 == p || c.Participant2 == p
}

// Counterpart returns the other side of the conversation for p.
func (c *Conversation) Counterpart(p Participant) Participant {
	if c.Participant1 == p {
		return c.Participant2
	}
	return c.Participant1
}

// ParticipantOfKind returns the participant with the given kind, if any.
func (c *Conversation) ParticipantOfKind(k Kind) (Participant, bool) {
	switch {
	case c.Participant1.Kind == k:
		return c.Participant1, true
	case c.Participant2.Kind == k:
		return c.Participant2, true
	default:
		return Participant{}, false
	}
}

// BookingKey is the booking id or "" and is part of the uniqueness key.
func (c *Conversation) BookingKey() string {
	if c.BookingID == nil {
		return ""
	}
	return *c.BookingID
}
