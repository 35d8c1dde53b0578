package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/ports"
)

// BlobStore keeps attachment bytes in the attachments table and serves them
// under {baseURL}/attachments/{id}.
type BlobStore struct {
	pool    *pgxpool.Pool
	baseURL string
}

var (
	_ ports.BlobStorage = (*BlobStore)(nil)
	_ ports.BlobReader  = (*BlobStore)(nil)
)

func NewBlobStore(pool *pgxpool.Pool, baseURL string) *BlobStore {
	return &BlobStore{pool: pool, baseURL: strings.TrimRight(baseURL, "/")}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// db joins the caller's transaction when there is one, so an upload rolls
// back with the message that references it.
func (store *BlobStore) db(ctx context.Context) querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return store.pool
}

func (store *BlobStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	id := uuid.NewString()
	_, err := store.db(ctx).Exec(ctx, `
		INSERT INTO attachments (id, content_type, data)
		VALUES ($1, $2, $3)
	`, id, contentType, data)
	if err != nil {
		return "", mapError(err)
	}
	return store.baseURL + "/attachments/" + id, nil
}

func (store *BlobStore) Get(ctx context.Context, id string) (*ports.Blob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: attachment %s", apperr.ErrNotFound, id)
	}

	blob := ports.Blob{ID: id}
	err := store.db(ctx).QueryRow(ctx, `
		SELECT content_type, data, created_at FROM attachments WHERE id = $1
	`, id).Scan(&blob.ContentType, &blob.Data, &blob.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &blob, nil
}
