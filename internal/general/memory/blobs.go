package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/ports"
)

// Blobs keeps uploads in memory and serves them under BaseURL/attachments/{id}.
type Blobs struct {
	BaseURL string

	mu    sync.Mutex
	blobs map[string]ports.Blob
	fail  error
}

var (
	_ ports.BlobStorage = (*Blobs)(nil)
	_ ports.BlobReader  = (*Blobs)(nil)
)

func NewBlobs(baseURL string) *Blobs {
	return &Blobs{BaseURL: strings.TrimRight(baseURL, "/"), blobs: map[string]ports.Blob{}}
}

// FailNext makes the next Upload return err.
func (b *Blobs) FailNext(err error) {
	b.mu.Lock()
	b.fail = err
	b.mu.Unlock()
}

func (b *Blobs) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fail != nil {
		err := b.fail
		b.fail = nil
		return "", err
	}

	id := uuid.NewString()
	b.blobs[id] = ports.Blob{
		ID:          id,
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
		CreatedAt:   time.Now().UTC(),
	}
	return b.BaseURL + "/attachments/" + id, nil
}

func (b *Blobs) Get(ctx context.Context, id string) (*ports.Blob, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	blob, ok := b.blobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: attachment %s", apperr.ErrNotFound, id)
	}
	return &blob, nil
}

// Len reports how many blobs are stored.
func (b *Blobs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}
