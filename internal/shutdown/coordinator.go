// Copyright 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

// Package shutdown runs cleanup hooks once, newest first, when the process
// is asked to stop.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dotandev/scalewatch/internal/logger"
)

// DefaultTimeout bounds the whole hook run started by RunWithTimeout.
const DefaultTimeout = 10 * time.Second

type HookFunc func(context.Context) error

type hook struct {
	name string
	fn   HookFunc
}

// Coordinator runs registered shutdown hooks exactly once in LIFO order.
type Coordinator struct {
	mu   sync.Mutex
	hook []hook
	ran  bool
}

func NewCoordinator() *Coordinator {
	return &Coordinator{
		hook: make([]hook, 0),
	}
}

// Register adds a hook. Hooks registered after Run are dropped.
func (c *Coordinator) Register(name string, fn HookFunc) {
	if fn == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ran {
		logger.Logger.Debug("shutdown hook registered too late", "hook", name)
		return
	}

	c.hook = append(c.hook, hook{name: name, fn: fn})
}

// Len reports how many hooks are waiting to run.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ran {
		return 0
	}
	return len(c.hook)
}

// Run executes every hook, newest first, splitting whatever remains of the
// ctx deadline evenly between the hooks still to run. Hook failures are
// joined; later hooks still run.
func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.ran {
		c.mu.Unlock()
		return nil
	}
	c.ran = true
	hooks := make([]hook, len(c.hook))
	copy(hooks, c.hook)
	c.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]

		hookCtx, cancel := perHookContext(ctx, i+1)
		start := time.Now()
		err := h.fn(hookCtx)
		cancel()
		if err != nil {
			logger.Logger.Warn("shutdown hook failed", "hook", h.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}
		logger.Logger.Debug("shutdown hook done", "hook", h.name, "elapsed", time.Since(start))
	}

	return errors.Join(errs...)
}

// RunWithTimeout is Run bounded by timeout, or DefaultTimeout when timeout
// is not positive.
func (c *Coordinator) RunWithTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Run(ctx)
}

func perHookContext(ctx context.Context, hooksRemaining int) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok || hooksRemaining <= 0 {
		return ctx, func() {}
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return context.WithTimeout(ctx, 1*time.Millisecond)
	}

	perHook := remaining / time.Duration(hooksRemaining)
	if perHook <= 0 {
		perHook = remaining
	}
	return context.WithTimeout(ctx, perHook)
}
