package service

import (
	"context"

	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/ports"
)

// History returns messages with seq > AfterSeq ordered by createdAt, then seq.
func (service *chatService) History(ctx context.Context, in ports.HistoryInput) (ports.HistoryResult, error) {
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}

	var msgs []chat.Message
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if _, err := service.loadFor(txCtx, in.ConversationID, in.Reader); err != nil {
			return err
		}

		var err error
		msgs, err = service.messages.ListAfter(txCtx, in.ConversationID, in.AfterSeq, limit)
		return err
	})
	if err != nil {
		return ports.HistoryResult{}, err
	}

	res := ports.HistoryResult{ConversationID: in.ConversationID, NextAfterSeq: in.AfterSeq}
	res.Messages = toWireAll(msgs)
	for _, m := range msgs {
		res.NextAfterSeq = max(res.NextAfterSeq, m.Seq)
	}
	return res, nil
}

// MarkRead stamps readAt on every unread message the reader received.
func (service *chatService) MarkRead(ctx context.Context, conversationID string, reader chat.Participant) (ports.MarkReadResult, error) {
	now := service.clock.Now()

	var n int
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if _, err := service.loadFor(txCtx, conversationID, reader); err != nil {
			return err
		}

		var err error
		n, err = service.messages.MarkRead(txCtx, conversationID, reader, now)
		return err
	})
	if err != nil {
		return ports.MarkReadResult{}, err
	}

	if n > 0 {
		service.logger.Debug(ctx, "messages_read", "Messages marked as read", map[string]any{
			"conversation_id": conversationID,
			"reader":          reader.Key(),
			"updated":         n,
		})
	}
	return ports.MarkReadResult{ConversationID: conversationID, Updated: n, ReadAt: now}, nil
}
