// Package picker implements the optimistic edit cycle of a single issue field:
// show the chosen value at once, write it in the background, then keep it or
// roll back.
package picker

import (
	"context"
	"errors"
	"sync"
)

type State int

const (
	Displaying State = iota
	Editing
	Pending
	Reverted
)

func (s State) String() string {
	switch s {
	case Displaying:
		return "displaying"
	case Editing:
		return "editing"
	case Pending:
		return "pending"
	case Reverted:
		return "reverted"
	}
	return "unknown"
}

var (
	ErrAlreadyEditing = errors.New("picker is already open")
	ErrNotEditing     = errors.New("picker is not open")
)

// Mutation writes one value to the server.
type Mutation[T any] func(ctx context.Context, value T) error

// Notifier is told how each current write ended.
type Notifier interface {
	Success(field string)
	Error(field string, err error)
}

// Result reports how one Select ended. Stale is set when a newer selection
// was made before this one finished; stale results leave the controller
// untouched.
type Result[T any] struct {
	Value      T
	Err        error
	RefreshErr error
	Stale      bool
}

// Controller tracks one field's picker. It is safe for concurrent use.
type Controller[T any] struct {
	mu         sync.Mutex
	field      string
	state      State
	committed  T
	displayed  T
	generation uint64

	mutate   Mutation[T]
	notifier Notifier
	refresh  func(context.Context) error
}

type Option[T any] func(*Controller[T])

func WithNotifier[T any](n Notifier) Option[T] {
	return func(c *Controller[T]) {
		c.notifier = n
	}
}

// WithRefresh runs fn after every successful write, e.g. to reload the
// issue list.
func WithRefresh[T any](fn func(context.Context) error) Option[T] {
	return func(c *Controller[T]) {
		c.refresh = fn
	}
}

func New[T any](field string, initial T, mutate Mutation[T], opts ...Option[T]) *Controller[T] {
	c := &Controller[T]{
		field:     field,
		state:     Displaying,
		committed: initial,
		displayed: initial,
		mutate:    mutate,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller[T]) Field() string {
	return c.field
}

func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Value is what the field currently shows, including an unconfirmed
// selection.
func (c *Controller[T]) Value() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayed
}

// Committed is the last value the server confirmed.
func (c *Controller[T]) Committed() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed
}

// Open starts editing.
func (c *Controller[T]) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Editing {
		return ErrAlreadyEditing
	}
	c.state = Editing
	return nil
}

// Close stops editing without a selection.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Editing {
		c.state = Displaying
	}
}

// Select shows value immediately and writes it in the background. The
// returned channel receives exactly one Result and is then closed.
func (c *Controller[T]) Select(ctx context.Context, value T) (<-chan Result[T], error) {
	c.mu.Lock()
	if c.state != Editing {
		c.mu.Unlock()
		return nil, ErrNotEditing
	}
	c.generation++
	gen := c.generation
	c.displayed = value
	c.state = Pending
	c.mu.Unlock()

	out := make(chan Result[T], 1)
	go func() {
		defer close(out)
		out <- c.dispatch(ctx, gen, value)
	}()
	return out, nil
}

func (c *Controller[T]) dispatch(ctx context.Context, gen uint64, value T) Result[T] {
	err := c.mutate(ctx, value)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return Result[T]{Value: value, Err: err, Stale: true}
	}
	if err != nil {
		c.displayed = c.committed
		c.state = Reverted
	} else {
		c.committed = value
		c.state = Displaying
	}
	c.mu.Unlock()

	res := Result[T]{Value: value, Err: err}
	if err != nil {
		if c.notifier != nil {
			c.notifier.Error(c.field, err)
		}
		return res
	}
	if c.notifier != nil {
		c.notifier.Success(c.field)
	}
	if c.refresh != nil {
		res.RefreshErr = c.refresh(ctx)
	}
	return res
}
