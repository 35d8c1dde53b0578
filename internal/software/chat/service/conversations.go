package service

import (
	"context"
	"fmt"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/booking"
	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/ports"
)

// GetOrCreate returns the conversation for the pair, creating it on first use.
func (service *chatService) GetOrCreate(ctx context.Context, in ports.OpenConversationInput) (ports.ConversationView, error) {
	draft, err := chat.NewConversation(in.CompanyID, in.Self, in.Other, in.BookingID, service.clock.Now())
	if err != nil {
		return ports.ConversationView{}, err
	}
	if draft.Relationship() == chat.RelationshipBooking && draft.BookingID == nil {
		return ports.ConversationView{}, fmt.Errorf("%w: customer conversations need a booking id", apperr.ErrValidation)
	}

	var (
		conv    *chat.Conversation
		created bool
	)
	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if draft.BookingID != nil {
			b, err := service.bookings.GetByID(txCtx, *draft.BookingID)
			if err != nil {
				return err
			}
			if err := bookingParties(draft, b); err != nil {
				return err
			}
		}

		var err error
		conv, created, err = service.conversations.GetOrCreate(txCtx, draft)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "conversation_open_failed", "Failed to open conversation", err, map[string]any{
			"company_id": in.CompanyID,
			"self":       in.Self.Key(),
			"other":      in.Other.Key(),
		})
		return ports.ConversationView{}, err
	}

	if created {
		service.logger.Info(ctx, "conversation_created", "Conversation created", map[string]any{
			"conversation_id": conv.ID,
			"relationship":    string(conv.Relationship()),
			"booking_id":      conv.BookingKey(),
		})
	}

	view := toConversationView(*conv)
	view.Created = created
	return view, nil
}

// bookingParties checks that a booking conversation is opened inside the
// booking's company by its customer and, once assigned, its driver.
func bookingParties(conv *chat.Conversation, b *booking.Booking) error {
	if b.CompanyID != conv.CompanyID {
		return fmt.Errorf("%w: booking %s", apperr.ErrNotFound, b.ID)
	}
	if c, ok := conv.ParticipantOfKind(chat.KindCustomer); ok && c.ID != b.CustomerRef {
		return fmt.Errorf("%w: customer %s is not on booking %s", apperr.ErrValidation, c.ID, b.ID)
	}
	if d, ok := conv.ParticipantOfKind(chat.KindDriver); ok && b.DriverID != nil && d.ID != *b.DriverID {
		return fmt.Errorf("%w: driver %s is not assigned to booking %s", apperr.ErrValidation, d.ID, b.ID)
	}
	return nil
}

// ListForParticipant returns the participant's conversations, newest first.
func (service *chatService) ListForParticipant(ctx context.Context, companyID string, p chat.Participant) ([]ports.ConversationView, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var convs []*chat.Conversation
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		convs, err = service.conversations.ListForParticipant(txCtx, companyID, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]ports.ConversationView, 0, len(convs))
	for _, c := range convs {
		out = append(out, toConversationView(*c))
	}
	return out, nil
}

// loadFor fetches a conversation and checks that p takes part in it.
// Must run inside a unit of work.
func (service *chatService) loadFor(txCtx context.Context, conversationID string, p chat.Participant) (*chat.Conversation, error) {
	conv, err := service.conversations.GetByID(txCtx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.Has(p) {
		return nil, apperr.Forbidden("not_participant")
	}
	return conv, nil
}
