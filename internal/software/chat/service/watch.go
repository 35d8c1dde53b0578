package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"ride-dispatch/internal/domain/apperr"
	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/ports"
)

// ErrStreamLost ends a watch whose event stream went away. The client should
// reload history from its last seq and watch again.
var ErrStreamLost = fmt.Errorf("%w: live stream lost", apperr.ErrUnavailable)

const watchBuffer = 32

// Watch streams new messages of a conversation starting after afterSeq.
// Messages already stored are replayed first; live events that skip a seq
// trigger a history reload and duplicates are dropped, so the feed is
// strictly increasing in seq.
func (service *chatService) Watch(ctx context.Context, conversationID string, viewer chat.Participant, afterSeq int64) (ports.MessageWatch, error) {
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		_, err := service.loadFor(txCtx, conversationID, viewer)
		return err
	})
	if err != nil {
		return nil, err
	}

	wctx, cancel := context.WithCancel(ctx)

	// subscribe before replaying so nothing falls between the two
	stream, err := service.source.Subscribe(wctx, contracts.ConversationRoute(conversationID))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: subscribe: %s", apperr.ErrUnavailable, err)
	}

	w := &watcher{
		service:        service,
		conversationID: conversationID,
		stream:         stream,
		out:            make(chan contracts.ChatMessage, watchBuffer),
		cancel:         cancel,
		done:           make(chan struct{}),
		last:           afterSeq,
	}
	go w.run(wctx)
	return w, nil
}

type watcher struct {
	service        *chatService
	conversationID string
	stream         ports.EventStream
	out            chan contracts.ChatMessage
	cancel         context.CancelFunc
	done           chan struct{}

	last int64 // owned by run

	mu  sync.Mutex
	err error
}

func (w *watcher) Messages() <-chan contracts.ChatMessage { return w.out }

func (w *watcher) Close() error {
	w.cancel()
	<-w.done
	return nil
}

func (w *watcher) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *watcher) fail(err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
}

func (w *watcher) run(ctx context.Context) {
	defer close(w.done)
	defer close(w.out)
	defer w.stream.Close()

	if err := w.reload(ctx); err != nil {
		w.fail(err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.stream.Events():
			if !ok {
				if ctx.Err() == nil {
					w.fail(ErrStreamLost)
					w.service.logger.Info(ctx, "watch_stream_lost", "Live stream ended, client must resync", map[string]any{
						"conversation_id": w.conversationID,
						"last_seq":        w.last,
					})
				}
				return
			}

			var evt contracts.ConversationMessageEvent
			if err := json.Unmarshal(ev.Body, &evt); err != nil {
				w.service.logger.Error(ctx, "watch_decode_failed", "Dropping undecodable message event", err, map[string]any{
					"topic": ev.Topic,
				})
				continue
			}

			m := evt.Message
			switch {
			case m.ConversationID != w.conversationID, m.Seq <= w.last:
				continue
			case m.Seq > w.last+1:
				// missed something; the store has it
				if err := w.reload(ctx); err != nil {
					w.fail(err)
					return
				}
			default:
				if !w.emit(ctx, m) {
					return
				}
			}
		}
	}
}

// reload replays stored messages after the last delivered seq.
func (w *watcher) reload(ctx context.Context) error {
	for {
		var page []chat.Message
		err := w.service.uow.WithinTx(ctx, func(txCtx context.Context) error {
			var err error
			page, err = w.service.messages.ListAfter(txCtx, w.conversationID, w.last, maxHistoryLimit)
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		for _, m := range page {
			if m.Seq <= w.last {
				continue
			}
			if !w.emit(ctx, toWire(m)) {
				return nil
			}
		}
		if len(page) < maxHistoryLimit {
			return nil
		}
	}
}

func (w *watcher) emit(ctx context.Context, m contracts.ChatMessage) bool {
	select {
	case w.out <- m:
		w.last = max(w.last, m.Seq)
		return true
	case <-ctx.Done():
		return false
	}
}
