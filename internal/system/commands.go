package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/worldcore/internal/core/system"
)

// ErrQueueFull is returned by Submit when the command queue has no room.
var ErrQueueFull = errors.New("command queue full")

// Command runs on the game loop goroutine.
type Command func()

// CommandQueue lets other goroutines run code on the game loop, which owns
// the map. Phase 0 (Input).
type CommandQueue struct {
	ch         chan Command
	maxPerTick int
	log        *zap.Logger
}

func NewCommandQueue(size, maxPerTick int, log *zap.Logger) *CommandQueue {
	return &CommandQueue{
		ch:         make(chan Command, size),
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (q *CommandQueue) Phase() coresys.Phase { return coresys.PhaseInput }

func (q *CommandQueue) Update(_ time.Duration) {
	for i := 0; i < q.maxPerTick; i++ {
		select {
		case cmd := <-q.ch:
			if err := q.safeRun(cmd); err != nil {
				q.log.Error("command failed", zap.Error(err))
			}
		default:
			return
		}
	}
}

// safeRun executes a command with panic recovery so a bad command cannot
// take down the game loop.
func (q *CommandQueue) safeRun(cmd Command) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("command panic: %v", rec)
		}
	}()
	cmd()
	return nil
}

// Submit queues cmd without blocking.
func (q *CommandQueue) Submit(cmd Command) error {
	select {
	case q.ch <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Do runs fn on the game loop and waits until it has finished. When ctx
// ends first Do returns ctx.Err(); a queued fn may still run later.
func (q *CommandQueue) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	cmd := func() {
		defer close(done)
		fn()
	}
	select {
	case q.ch <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of queued commands.
func (q *CommandQueue) Len() int { return len(q.ch) }
