package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/ports"
)

// MessageRepo persists message history using pgx and plain SQL.
type MessageRepo struct{}

// NewMessageRepo constructs a new MessageRepo.
func NewMessageRepo() ports.MessageRepository {
	return &MessageRepo{}
}

// bodyRow is the jsonb shape of messages.body.
type bodyRow struct {
	Text       string           `json:"text,omitempty"`
	Caption    string           `json:"caption,omitempty"`
	Attachment *chat.Attachment `json:"attachment,omitempty"`
}

func encodeBody(b chat.Body) ([]byte, error) {
	var row bodyRow
	switch v := b.(type) {
	case chat.Text:
		row.Text = v.Text
	case chat.Image:
		row.Caption = v.Caption
	}
	if a, ok := chat.AttachmentOf(b); ok {
		row.Attachment = &a
	}
	return json.Marshal(row)
}

func decodeBody(kind string, data []byte) (chat.Body, error) {
	k, err := chat.ParseBodyKind(kind)
	if err != nil {
		return nil, err
	}

	var row bodyRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("decode message body: %w", err)
	}

	if k == chat.BodyText {
		return chat.Text{Text: row.Text}, nil
	}
	if row.Attachment == nil {
		return nil, fmt.Errorf("%s message without attachment", k)
	}
	return chat.Draft{Kind: k, Text: row.Caption}.WithAttachment(*row.Attachment)
}

// Append takes the next seq from the conversation row, which also serializes
// concurrent appends to one conversation, and inserts the message. created_at
// never goes below the previous message's, so (created_at, seq) order and seq
// order agree.
func (repo *MessageRepo) Append(ctx context.Context, m *chat.Message) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	body, err := encodeBody(m.Body)
	if err != nil {
		return err
	}

	var seq int64
	err = tx.QueryRow(ctx, `
		UPDATE conversations SET last_seq = last_seq + 1
		WHERE id = $1
		RETURNING last_seq
	`, m.ConversationID).Scan(&seq)
	if err != nil {
		return mapError(err)
	}

	createdAt := m.CreatedAt
	err = tx.QueryRow(ctx, `
		SELECT GREATEST($3::timestamptz, COALESCE(MAX(created_at), $3::timestamptz))
		FROM messages
		WHERE conversation_id = $1 AND seq = $2
	`, m.ConversationID, seq-1, m.CreatedAt).Scan(&createdAt)
	if err != nil {
		return mapError(err)
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, seq, sender_type, sender_id, body_type, body, created_at, read_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
	`,
		m.ID, m.ConversationID, seq, m.Sender.Kind.String(), m.Sender.ID,
		string(m.Body.Kind()), string(body), createdAt, m.ReadAt,
	)
	if err != nil {
		return mapError(err)
	}

	m.Seq = seq
	m.CreatedAt = createdAt
	return nil
}

// ListAfter returns up to limit messages with seq > afterSeq ordered by created_at, seq.
func (repo *MessageRepo) ListAfter(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]chat.Message, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(conversationID); err != nil {
		return nil, fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, conversationID)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, conversation_id, seq, sender_type, sender_id, body_type, body, created_at, read_at
		FROM messages
		WHERE conversation_id = $1 AND seq > $2
		ORDER BY created_at, seq
		LIMIT $3
	`, conversationID, afterSeq, limit)
	if err != nil {
		return nil, mapError(err)
	}

	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (chat.Message, error) {
		var (
			m                chat.Message
			senderType, kind string
			body             []byte
		)
		err := row.Scan(&m.ID, &m.ConversationID, &m.Seq, &senderType, &m.Sender.ID, &kind, &body, &m.CreatedAt, &m.ReadAt)
		if err != nil {
			return m, err
		}
		if m.Sender.Kind, err = chat.ParseKind(senderType); err != nil {
			return m, err
		}
		m.Body, err = decodeBody(kind, body)
		return m, err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return msgs, nil
}

// MarkRead stamps read_at on unread messages sent by the other party.
func (repo *MessageRepo) MarkRead(ctx context.Context, conversationID string, reader chat.Participant, at time.Time) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE messages
		SET read_at = $4
		WHERE conversation_id = $1
		  AND read_at IS NULL
		  AND NOT (sender_type = $2 AND sender_id = $3)
	`, conversationID, reader.Kind.String(), reader.ID, at)
	if err != nil {
		return 0, mapError(err)
	}
	return int(tag.RowsAffected()), nil
}
