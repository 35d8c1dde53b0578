package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/ports"
)

// ConversationRepo persists conversations using pgx and plain SQL.
type ConversationRepo struct{}

// NewConversationRepo constructs a new ConversationRepo.
func NewConversationRepo() ports.ConversationRepository {
	return &ConversationRepo{}
}

const conversationColumns = `id, company_id, participant1_type, participant1_id,
	participant2_type, participant2_id, booking_id, last_seq, created_at`

func scanConversation(row pgx.Row) (*chat.Conversation, error) {
	var (
		c      chat.Conversation
		p1, p2 string
	)
	err := row.Scan(
		&c.ID, &c.CompanyID, &p1, &c.Participant1.ID, &p2, &c.Participant2.ID,
		&c.BookingID, &c.LastSeq, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if c.Participant1.Kind, err = chat.ParseKind(p1); err != nil {
		return nil, err
	}
	if c.Participant2.Kind, err = chat.ParseKind(p2); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetOrCreate inserts c unless a conversation with the same key exists.
func (repo *ConversationRepo) GetOrCreate(ctx context.Context, c *chat.Conversation) (*chat.Conversation, bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, false, err
	}

	p1, p2 := chat.Canonical(c.Participant1, c.Participant2)
	id := c.ID
	if id == "" {
		id = uuid.NewString()
	}

	conv, err := scanConversation(tx.QueryRow(ctx, `
		INSERT INTO conversations (id, company_id, participant1_type, participant1_id,
			participant2_type, participant2_id, booking_id, booking_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (company_id, participant1_type, participant1_id, participant2_type, participant2_id, booking_key)
		DO NOTHING
		RETURNING `+conversationColumns,
		id, c.CompanyID, p1.Kind.String(), p1.ID, p2.Kind.String(), p2.ID, c.BookingID, c.BookingKey(), c.CreatedAt,
	))
	if err == nil {
		return conv, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, mapError(err)
	}

	// lost the insert to an existing row
	conv, err = scanConversation(tx.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE company_id = $1
		  AND participant1_type = $2 AND participant1_id = $3
		  AND participant2_type = $4 AND participant2_id = $5
		  AND booking_key = $6
	`, c.CompanyID, p1.Kind.String(), p1.ID, p2.Kind.String(), p2.ID, c.BookingKey()))
	if err != nil {
		return nil, false, mapError(err)
	}
	return conv, false, nil
}

func (repo *ConversationRepo) GetByID(ctx context.Context, id string) (*chat.Conversation, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, id)
	}

	conv, err := scanConversation(tx.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return conv, nil
}

// ListForParticipant returns p's conversations in the company, newest first.
func (repo *ConversationRepo) ListForParticipant(ctx context.Context, companyID string, p chat.Participant) ([]*chat.Conversation, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE company_id = $1
		  AND ((participant1_type = $2 AND participant1_id = $3)
		    OR (participant2_type = $2 AND participant2_id = $3))
		ORDER BY created_at DESC, id
	`, companyID, p.Kind.String(), p.ID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*chat.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, mapError(rows.Err())
}
