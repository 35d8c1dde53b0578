// Package optimistic implements the two-phase update used for every entity
// transition: a tentative local mutation that keeps an undo snapshot, then an
// authoritative conditional write that either confirms it or restores the
// snapshot.
package optimistic

import (
	"context"
	"errors"
	"fmt"
)

// Cloner is implemented by entities that can produce a deep copy of themselves.
type Cloner[T any] interface {
	Clone() T
}

var (
	ErrNilTarget = errors.New("optimistic: nil target")
	ErrSettled   = errors.New("optimistic: update already settled")
)

// Update is a tentative mutation of *target awaiting confirmation.
type Update[T Cloner[T]] struct {
	target   *T
	snapshot T
	settled  bool
}

// Begin snapshots *target and applies mutate to it. If mutate fails the target
// is restored and no Update is returned.
func Begin[T Cloner[T]](target *T, mutate func(*T) error) (*Update[T], error) {
	if target == nil {
		return nil, ErrNilTarget
	}

	snapshot := (*target).Clone()
	if err := mutate(target); err != nil {
		*target = snapshot
		return nil, err
	}

	return &Update[T]{target: target, snapshot: snapshot}, nil
}

// Tentative returns a copy of the locally applied next state.
func (u *Update[T]) Tentative() T {
	return (*u.target).Clone()
}

// Snapshot returns a copy of the state before the mutation.
func (u *Update[T]) Snapshot() T {
	return u.snapshot.Clone()
}

// Settled reports whether Commit or Rollback has already run.
func (u *Update[T]) Settled() bool {
	return u.settled
}

// Commit issues the authoritative write. On success the tentative state
// becomes canonical. On any failure, including cancellation of ctx before the
// write completes, the target is restored from the snapshot and the error is
// returned unchanged so callers can classify it with apperr.
func (u *Update[T]) Commit(ctx context.Context, write func(ctx context.Context, next T) error) error {
	if u.settled {
		return ErrSettled
	}
	u.settled = true

	if err := ctx.Err(); err != nil {
		*u.target = u.snapshot
		return fmt.Errorf("commit aborted: %w", err)
	}

	if err := write(ctx, (*u.target).Clone()); err != nil {
		*u.target = u.snapshot
		return err
	}

	return nil
}

// Rollback abandons the update and restores the snapshot.
func (u *Update[T]) Rollback() {
	if u.settled {
		return
	}
	u.settled = true
	*u.target = u.snapshot
}
