package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/domain/gate"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/ports"
)

// Send appends a message if the gate allows it right now.
// Order: participant check, gate, body validation, blob upload, append, publish.
func (service *chatService) Send(ctx context.Context, in ports.SendMessageInput) (contracts.ChatMessage, error) {
	corrID := generateCorrelationID()
	ctx = service.logger.WithRequestID(ctx, corrID)

	var msg chat.Message
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		conv, err := service.loadFor(txCtx, in.ConversationID, in.Sender)
		if err != nil {
			return err
		}

		now := service.clock.Now()
		decision, err := service.evaluate(txCtx, conv, now)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return apperr.Forbidden(decision.Reason)
		}

		body, err := service.buildBody(txCtx, in.Draft)
		if err != nil {
			return err
		}

		msg = chat.Message{
			ConversationID: conv.ID,
			Sender:         in.Sender,
			Body:           body,
			CreatedAt:      now,
		}
		return service.messages.Append(txCtx, &msg)
	})
	if err != nil {
		if reason, ok := apperr.ReasonOf(err); ok {
			service.logger.Info(ctx, "message_denied", "Message rejected by policy", map[string]any{
				"conversation_id": in.ConversationID,
				"sender":          in.Sender.Key(),
				"reason":          reason,
			})
		} else {
			service.logger.Error(ctx, "message_send_failed", "Failed to send message", err, map[string]any{
				"conversation_id": in.ConversationID,
				"code":            apperr.Code(err),
			})
		}
		return contracts.ChatMessage{}, err
	}

	wire := toWire(msg)
	service.publishMessage(ctx, wire, corrID)

	service.logger.Debug(ctx, "message_sent", "Message appended", map[string]any{
		"conversation_id": msg.ConversationID,
		"seq":             msg.Seq,
		"type":            string(msg.Body.Kind()),
	})
	return wire, nil
}

// evaluate collects the gate inputs for conv. The decision is made fresh on
// every call; nothing about it is cached.
func (service *chatService) evaluate(txCtx context.Context, conv *chat.Conversation, now time.Time) (gate.Decision, error) {
	gc := gate.Context{Relationship: conv.Relationship(), Now: now, Window: service.window}

	switch gc.Relationship {
	case chat.RelationshipDuty:
		driver, _ := conv.ParticipantOfKind(chat.KindDriver)
		s, err := service.shifts.GetOpenForDriver(txCtx, driver.ID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
		case err != nil:
			return gate.Decision{}, err
		default:
			status := s.Status
			gc.ShiftStatus = &status
		}

	case chat.RelationshipBooking:
		if conv.BookingID == nil {
			break
		}
		b, err := service.bookings.GetByID(txCtx, *conv.BookingID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
		case err != nil:
			return gate.Decision{}, err
		case bookingParties(conv, b) != nil:
			// reassigned to another driver since the conversation opened
		default:
			gc.Booking = &gate.BookingState{Status: b.Status, PickupTime: b.PickupTime}
		}
	}

	return gate.Evaluate(gc), nil
}

// buildBody validates the draft and uploads its attachment, if any.
func (service *chatService) buildBody(txCtx context.Context, d chat.Draft) (chat.Body, error) {
	if d.Kind == chat.BodyText || d.Kind == "" {
		return d.TextBody()
	}

	mediaType, err := service.policy.Check(d.Kind, d.Upload)
	if err != nil {
		return nil, err
	}

	url, err := service.blobs.Upload(txCtx, d.Upload.Data, mediaType)
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}

	return d.WithAttachment(chat.Attachment{
		URL:         url,
		Name:        d.Upload.Name,
		ContentType: mediaType,
		SizeBytes:   int64(len(d.Upload.Data)),
	})
}

// publishMessage announces the new message on conversation.{id}.message.
func (service *chatService) publishMessage(ctx context.Context, m contracts.ChatMessage, corrID string) {
	routingKey := contracts.ConversationRoute(m.ConversationID)

	body, err := json.Marshal(contracts.ConversationMessageEvent{
		Message: m,
		Envelope: contracts.Envelope{
			CorrelationID: corrID,
			Producer:      "dispatch-service",
			SentAt:        service.clock.Now(),
		},
	})
	if err == nil {
		err = service.pub.Publish(contracts.ExchangeDispatchTopic, routingKey, body)
	}
	if err != nil {
		service.logger.Error(ctx, "message_publish_failed", "Failed to publish message event", err, map[string]any{
			"routing_key": routingKey,
			"seq":         m.Seq,
		})
	}
}
