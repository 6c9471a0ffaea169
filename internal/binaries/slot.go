package binaries

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// SlotState is the resolution state of one tool.
type SlotState int

const (
	// Unresolved means no attempt has been made yet.
	Unresolved SlotState = iota
	// Resolving means an attempt is in flight.
	Resolving
	// Resolved means the value is known for the life of the slot.
	Resolved
	// Failed means the last attempt failed; the next call retries.
	Failed
)

// String returns the lowercase state name.
func (s SlotState) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

const slotKey = "slot"

// Slot memoizes the result of an expensive acquisition.
//
// Concurrent callers share a single in-flight attempt. A successful value is
// kept for the lifetime of the slot; a failure is reported to every caller of
// that attempt and then forgotten, so the next Resolve starts over.
type Slot[T any] struct {
	mu    sync.Mutex
	state SlotState
	value T
	group singleflight.Group
}

// State reports where the slot is in its lifecycle.
func (s *Slot[T]) State() SlotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Resolve returns the memoized value or runs acquire to produce it.
//
// acquire runs detached from ctx cancellation: a caller that gives up does not
// abort the attempt the other waiters depend on. The caller itself returns
// ctx.Err() as soon as its ctx is done.
func (s *Slot[T]) Resolve(ctx context.Context, acquire func(context.Context) (T, error)) (T, error) {
	if v, ok := s.resolved(); ok {
		return v, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(slotKey, func() (any, error) {
		s.mu.Lock()
		if s.state == Resolved {
			v := s.value
			s.mu.Unlock()
			return v, nil
		}
		s.state = Resolving
		s.mu.Unlock()

		v, err := acquire(detached)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.state = Failed
			return v, err
		}
		s.value = v
		s.state = Resolved
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (s *Slot[T]) resolved() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Resolved {
		return s.value, true
	}
	var zero T
	return zero, false
}
